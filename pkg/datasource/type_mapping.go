package datasource

import (
	"strings"

	"github.com/jordigilh/investigator/pkg/domain"
)

// typeMap is a per-vendor native-type -> NormalizedType table. Keys are
// lowercase and unparametrized ("numeric", not "numeric(10,2)").
type typeMap map[string]domain.NormalizedType

var postgresTypes = typeMap{
	"smallint": domain.TypeInteger, "integer": domain.TypeInteger, "bigint": domain.TypeInteger,
	"int": domain.TypeInteger, "int2": domain.TypeInteger, "int4": domain.TypeInteger, "int8": domain.TypeInteger,
	"serial": domain.TypeInteger, "bigserial": domain.TypeInteger,
	"real": domain.TypeFloat, "double precision": domain.TypeFloat, "float4": domain.TypeFloat, "float8": domain.TypeFloat,
	"numeric": domain.TypeDecimal, "decimal": domain.TypeDecimal, "money": domain.TypeDecimal,
	"boolean": domain.TypeBoolean, "bool": domain.TypeBoolean,
	"date": domain.TypeDate,
	"timestamp": domain.TypeTimestamp, "timestamptz": domain.TypeTimestamp, "timestamp with time zone": domain.TypeTimestamp,
	"timestamp without time zone": domain.TypeTimestamp,
	"time": domain.TypeTime, "timetz": domain.TypeTime,
	"varchar": domain.TypeString, "character varying": domain.TypeString, "text": domain.TypeString,
	"char": domain.TypeString, "character": domain.TypeString, "uuid": domain.TypeString,
	"bytea": domain.TypeBinary,
	"json": domain.TypeJSON, "jsonb": domain.TypeJSON,
	"array": domain.TypeArray,
}

var mysqlTypes = typeMap{
	"tinyint": domain.TypeInteger, "smallint": domain.TypeInteger, "mediumint": domain.TypeInteger,
	"int": domain.TypeInteger, "integer": domain.TypeInteger, "bigint": domain.TypeInteger,
	"float": domain.TypeFloat, "double": domain.TypeFloat,
	"decimal": domain.TypeDecimal, "numeric": domain.TypeDecimal,
	"boolean": domain.TypeBoolean, "bool": domain.TypeBoolean,
	"date": domain.TypeDate,
	"datetime": domain.TypeDatetime, "timestamp": domain.TypeTimestamp,
	"time": domain.TypeTime,
	"varchar": domain.TypeString, "char": domain.TypeString, "text": domain.TypeString,
	"tinytext": domain.TypeString, "mediumtext": domain.TypeString, "longtext": domain.TypeString,
	"blob": domain.TypeBinary, "binary": domain.TypeBinary, "varbinary": domain.TypeBinary,
	"json": domain.TypeJSON,
}

var snowflakeTypes = typeMap{
	"number": domain.TypeDecimal, "decimal": domain.TypeDecimal, "numeric": domain.TypeDecimal,
	"int": domain.TypeInteger, "integer": domain.TypeInteger, "bigint": domain.TypeInteger, "smallint": domain.TypeInteger,
	"float": domain.TypeFloat, "double": domain.TypeFloat, "real": domain.TypeFloat,
	"boolean": domain.TypeBoolean,
	"date": domain.TypeDate,
	"datetime": domain.TypeDatetime, "timestamp": domain.TypeTimestamp,
	"timestamp_ntz": domain.TypeTimestamp, "timestamp_tz": domain.TypeTimestamp, "timestamp_ltz": domain.TypeTimestamp,
	"time": domain.TypeTime,
	"varchar": domain.TypeString, "char": domain.TypeString, "string": domain.TypeString, "text": domain.TypeString,
	"binary": domain.TypeBinary, "varbinary": domain.TypeBinary,
	"variant": domain.TypeJSON, "object": domain.TypeJSON,
	"array": domain.TypeArray,
}

var bigqueryTypes = typeMap{
	"int64": domain.TypeInteger, "integer": domain.TypeInteger,
	"float64": domain.TypeFloat, "float": domain.TypeFloat,
	"numeric": domain.TypeDecimal, "bignumeric": domain.TypeDecimal,
	"bool": domain.TypeBoolean, "boolean": domain.TypeBoolean,
	"date": domain.TypeDate,
	"datetime": domain.TypeDatetime, "timestamp": domain.TypeTimestamp,
	"time": domain.TypeTime,
	"string": domain.TypeString,
	"bytes": domain.TypeBinary,
	"struct": domain.TypeStruct, "record": domain.TypeStruct,
	"array": domain.TypeArray,
	"json": domain.TypeJSON,
}

var mongodbTypes = typeMap{
	"int": domain.TypeInteger, "int32": domain.TypeInteger, "int64": domain.TypeInteger, "long": domain.TypeInteger,
	"double": domain.TypeFloat, "decimal": domain.TypeDecimal, "decimal128": domain.TypeDecimal,
	"bool": domain.TypeBoolean,
	"date": domain.TypeDatetime,
	"string": domain.TypeString, "objectid": domain.TypeString,
	"bindata": domain.TypeBinary,
	"object": domain.TypeStruct,
	"array": domain.TypeArray,
}

var salesforceTypes = typeMap{
	"int": domain.TypeInteger,
	"double": domain.TypeFloat, "currency": domain.TypeDecimal, "percent": domain.TypeDecimal,
	"boolean": domain.TypeBoolean,
	"date": domain.TypeDate, "datetime": domain.TypeDatetime,
	"time": domain.TypeTime,
	"string": domain.TypeString, "textarea": domain.TypeString, "picklist": domain.TypeString,
	"id": domain.TypeString, "reference": domain.TypeString, "email": domain.TypeString, "phone": domain.TypeString,
	"base64": domain.TypeBinary,
}

var typeMapsByVendor = map[string]typeMap{
	"postgresql": postgresTypes,
	"postgres":   postgresTypes,
	"mysql":      mysqlTypes,
	"snowflake":  snowflakeTypes,
	"bigquery":   bigqueryTypes,
	"mongodb":    mongodbTypes,
	"salesforce": salesforceTypes,
}

// NormalizeType maps a vendor's native column type string to the
// shared NormalizedType enum, using the vendor-specific table selected
// by vendor (a lowercase string such as "postgresql" or "mongodb").
// Matching is case-insensitive and strips parametrization — "NUMERIC(10,2)"
// and "varchar(255)" match "numeric" and "varchar" respectively — by
// cutting the native type at the first '(' or '<' and then trying
// progressively shorter whole-word prefixes, so that a vendor-specific
// qualifier list never causes a miss on the base type.
func NormalizeType(vendor, nativeType string) domain.NormalizedType {
	table, ok := typeMapsByVendor[strings.ToLower(vendor)]
	if !ok {
		return domain.TypeUnknown
	}

	cleaned := strings.ToLower(strings.TrimSpace(nativeType))
	if idx := strings.IndexAny(cleaned, "(<"); idx >= 0 {
		cleaned = strings.TrimSpace(cleaned[:idx])
	}
	if idx := strings.IndexByte(cleaned, '['); idx >= 0 {
		return domain.TypeArray
	}

	if t, ok := table[cleaned]; ok {
		return t
	}

	// Longest-prefix match over whole words: drop trailing words one at a
	// time until a key matches.
	words := strings.Fields(cleaned)
	for n := len(words) - 1; n > 0; n-- {
		if t, ok := table[strings.Join(words[:n], " ")]; ok {
			return t
		}
	}

	return domain.TypeUnknown
}
