package token

import (
	"strings"
	"sync"
	"sync/atomic"
)

// nextTokenID tracks the next available dynamic token ID.
// Dynamic tokens start after maxBuiltin (999).
var nextTokenID = int32(maxBuiltin)

var registerMu sync.RWMutex

// dynamicTokens maps registered dynamic tokens to their names.
var dynamicTokens = make(map[TokenType]string)

// dynamicKeywords maps registered lowercase keyword names to their token types.
var dynamicKeywords = make(map[string]TokenType)

// RegisterKeyword registers an additional reserved keyword so the lexer
// recognizes it and the masker never treats it as an entity. This is how
// dialect-specific words (QUALIFY, ILIKE, TOP, ...) are added from config.
// Registering an already-registered keyword returns the existing token type.
func RegisterKeyword(name string) TokenType {
	lower := strings.ToLower(name)
	if t, ok := keywords[lower]; ok {
		return t
	}

	registerMu.Lock()
	defer registerMu.Unlock()

	if t, ok := dynamicKeywords[lower]; ok {
		return t
	}

	id := atomic.AddInt32(&nextTokenID, 1)
	t := TokenType(id)
	dynamicTokens[t] = strings.ToUpper(name)
	dynamicKeywords[lower] = t
	return t
}

// getDynamicName returns the name of a dynamic token.
func getDynamicName(t TokenType) (string, bool) {
	registerMu.RLock()
	defer registerMu.RUnlock()
	name, ok := dynamicTokens[t]
	return name, ok
}

// lookupRegisteredKeyword returns the token type for a registered keyword.
func lookupRegisteredKeyword(name string) (TokenType, bool) {
	registerMu.RLock()
	defer registerMu.RUnlock()
	t, ok := dynamicKeywords[name]
	return t, ok
}

// IsDynamic returns true if the token type was dynamically registered.
func IsDynamic(t TokenType) bool {
	return t > maxBuiltin
}
