package mask

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// MappingRecord binds one original lexeme to its synthetic replacement
// within a role. Enabled records are applied by the rewriter; disabled ones
// leave the original lexeme untouched without being forgotten. Quoted marks
// an original that came from a quoted identifier and therefore matches
// case-exactly; unquoted identifier originals match case-insensitively.
type MappingRecord struct {
	Role      Role   `yaml:"role" json:"role"`
	Original  string `yaml:"original" json:"original"`
	Quoted    bool   `yaml:"quoted,omitempty" json:"quoted,omitempty"`
	Synthetic string `yaml:"synthetic" json:"synthetic"`
	Enabled   bool   `yaml:"enabled" json:"enabled"`
}

// mappingFile is the on-disk shape of a saved mapping.
type mappingFile struct {
	Version int             `yaml:"version" json:"version"`
	Records []MappingRecord `yaml:"records" json:"records"`
}

const mappingFileVersion = 1

type recordKey struct {
	role   Role
	lexeme string
}

// Store is the in-memory mapping table: O(1) average lookup by
// (role, original) and by (role, synthetic), insertion-ordered records,
// and lossless (de)serialization. A Store belongs to a single session and
// needs no locking.
type Store struct {
	records     []*MappingRecord
	byOriginal  map[recordKey]*MappingRecord
	bySynthetic map[recordKey]*MappingRecord
}

// NewStore creates an empty mapping store.
func NewStore() *Store {
	return &Store{
		byOriginal:  make(map[recordKey]*MappingRecord),
		bySynthetic: make(map[recordKey]*MappingRecord),
	}
}

// originalKey derives the index key for a record, matching how canonical
// entity keys are derived: quoted identifiers and string values stay exact,
// unquoted identifiers fold to lowercase.
func originalKey(rec *MappingRecord) recordKey {
	if rec.Role == RoleString || rec.Quoted {
		return recordKey{role: rec.Role, lexeme: rec.Original}
	}
	return recordKey{role: rec.Role, lexeme: strings.ToLower(rec.Original)}
}

// lookupOriginal resolves (role, original) against the index: an exact probe
// first, which is the only way quoted and string records match, then a
// case-folded probe that may only hit an unquoted record.
func (s *Store) lookupOriginal(role Role, original string) (*MappingRecord, bool) {
	if r, ok := s.byOriginal[recordKey{role: role, lexeme: original}]; ok {
		return r, true
	}
	if role == RoleString {
		return nil, false
	}
	folded := strings.ToLower(original)
	if folded == original {
		return nil, false
	}
	if r, ok := s.byOriginal[recordKey{role: role, lexeme: folded}]; ok && !r.Quoted {
		return r, true
	}
	return nil, false
}

func syntheticKey(role Role, synthetic string) recordKey {
	if role == RoleString {
		return recordKey{role: role, lexeme: synthetic}
	}
	return recordKey{role: role, lexeme: strings.ToLower(synthetic)}
}

// Add inserts a record. It fails if the (role, original) pair is already
// mapped or the synthetic name is already taken in an overlapping role.
func (s *Store) Add(rec MappingRecord) error {
	key := originalKey(&rec)
	if _, exists := s.byOriginal[key]; exists {
		return fmt.Errorf("mapping for %s %q already exists", rec.Role, rec.Original)
	}
	if s.SyntheticTaken(rec.Role, rec.Synthetic) {
		return fmt.Errorf("synthetic name %q already in use", rec.Synthetic)
	}

	r := rec
	s.records = append(s.records, &r)
	s.byOriginal[key] = &r
	s.bySynthetic[syntheticKey(rec.Role, rec.Synthetic)] = &r
	return nil
}

// Lookup returns the record for (role, original). Quoted and string
// originals match case-exactly, unquoted identifier originals fold.
func (s *Store) Lookup(role Role, original string) (MappingRecord, bool) {
	r, ok := s.lookupOriginal(role, original)
	if !ok {
		return MappingRecord{}, false
	}
	return *r, true
}

// LookupSynthetic returns the record whose synthetic name matches within
// the given role.
func (s *Store) LookupSynthetic(role Role, synthetic string) (MappingRecord, bool) {
	r, ok := s.bySynthetic[syntheticKey(role, synthetic)]
	if !ok {
		return MappingRecord{}, false
	}
	return *r, true
}

// LookupSyntheticAny returns the record whose synthetic name matches in any
// role, provided the match is unambiguous.
func (s *Store) LookupSyntheticAny(synthetic string) (MappingRecord, bool) {
	var found *MappingRecord
	for _, r := range s.records {
		if strings.EqualFold(r.Synthetic, synthetic) {
			if found != nil {
				return MappingRecord{}, false
			}
			found = r
		}
	}
	if found == nil {
		return MappingRecord{}, false
	}
	return *found, true
}

// SyntheticTaken reports whether the candidate synthetic name collides with
// a committed synthetic in the same or an overlapping lexical namespace.
func (s *Store) SyntheticTaken(role Role, candidate string) bool {
	for _, r := range s.records {
		if r.Role.sharesNamespace(role) && strings.EqualFold(r.Synthetic, candidate) {
			return true
		}
	}
	return false
}

// SetEnabled toggles masking for one entity without recomputing anything.
func (s *Store) SetEnabled(role Role, original string, enabled bool) bool {
	r, ok := s.lookupOriginal(role, original)
	if !ok {
		return false
	}
	r.Enabled = enabled
	return true
}

// Records returns a copy of all records in insertion order.
func (s *Store) Records() []MappingRecord {
	out := make([]MappingRecord, len(s.records))
	for i, r := range s.records {
		out[i] = *r
	}
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Merge folds the other store's records into this one. Existing records
// win: a loaded mapping keeps its synthetic names and enabled flags across
// sessions, and only previously unseen (role, original) pairs are appended.
func (s *Store) Merge(other *Store) error {
	for _, r := range other.records {
		if _, exists := s.byOriginal[originalKey(r)]; exists {
			continue
		}
		if err := s.Add(*r); err != nil {
			return fmt.Errorf("merging mapping for %s %q: %w", r.Role, r.Original, err)
		}
	}
	return nil
}

// Clear drops every record. Used by regeneration, which replaces the full
// set rather than mutating it in place.
func (s *Store) Clear() {
	s.records = nil
	s.byOriginal = make(map[recordKey]*MappingRecord)
	s.bySynthetic = make(map[recordKey]*MappingRecord)
}

// EncodeYAML writes the mapping to w in the YAML persistence format.
func (s *Store) EncodeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(mappingFile{Version: mappingFileVersion, Records: s.Records()})
}

// DecodeYAML reads a mapping written by EncodeYAML.
func DecodeYAML(r io.Reader) (*Store, error) {
	var f mappingFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding mapping file: %w", err)
	}
	return storeFromFile(f)
}

// EncodeJSON writes the mapping to w as JSON.
func (s *Store) EncodeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(mappingFile{Version: mappingFileVersion, Records: s.Records()})
}

// DecodeJSON reads a mapping written by EncodeJSON.
func DecodeJSON(r io.Reader) (*Store, error) {
	var f mappingFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding mapping file: %w", err)
	}
	return storeFromFile(f)
}

func storeFromFile(f mappingFile) (*Store, error) {
	if f.Version != mappingFileVersion {
		return nil, fmt.Errorf("unsupported mapping file version %d", f.Version)
	}
	s := NewStore()
	for _, rec := range f.Records {
		if err := s.Add(rec); err != nil {
			return nil, err
		}
	}
	return s, nil
}
