package mask

// builtins lists function and type names that are never masked even though
// they lex as plain identifiers. Masking any of these would change query
// semantics (COUNT, CAST targets) or break portability (type names differ
// per dialect but are structural, not data-bearing).
var builtins = map[string]struct{}{
	// aggregate and scalar functions
	"count": {}, "sum": {}, "avg": {}, "min": {}, "max": {},
	"abs": {}, "ceil": {}, "ceiling": {}, "floor": {}, "round": {},
	"upper": {}, "lower": {}, "trim": {}, "ltrim": {}, "rtrim": {},
	"substring": {}, "substr": {}, "length": {}, "char_length": {},
	"concat": {}, "replace": {}, "coalesce": {}, "isnull": {}, "nullif": {},
	"convert": {}, "extract": {}, "datepart": {}, "datediff": {},
	"dateadd": {}, "date_trunc": {}, "now": {}, "getdate": {}, "sysdate": {},
	"current_timestamp": {}, "current_date": {}, "current_time": {},
	"greatest": {}, "least": {}, "iif": {}, "ifnull": {}, "nvl": {},

	// window functions
	"first_value": {}, "last_value": {}, "lead": {}, "lag": {},
	"rank": {}, "dense_rank": {}, "row_number": {}, "ntile": {},
	"percent_rank": {}, "cume_dist": {},

	// type names (CAST targets, column definitions)
	"varchar": {}, "char": {}, "character": {}, "text": {},
	"int": {}, "integer": {}, "bigint": {}, "smallint": {}, "tinyint": {},
	"decimal": {}, "numeric": {}, "float": {}, "double": {}, "real": {},
	"date": {}, "datetime": {}, "timestamp": {}, "time": {}, "year": {},
	"boolean": {}, "bool": {}, "binary": {}, "varbinary": {},
	"blob": {}, "clob": {}, "json": {}, "xml": {}, "uuid": {},
	"serial": {}, "auto_increment": {},
}

// IsBuiltin reports whether the lowercase lexeme is a builtin function or
// type name on the exclusion list.
func IsBuiltin(lexeme string) bool {
	_, ok := builtins[lexeme]
	return ok
}
