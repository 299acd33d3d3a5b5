// Package scalar holds the tagged union used for every property and
// machine field value: Int, Bool, Str and Enum, plus Null and Unknown.
//
// Values read from a snapshot start out untyped (whatever the JSON scalar
// was); the compat package converts them to the declared property type.
package scalar
