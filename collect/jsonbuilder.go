package collect

import "github.com/tidwall/sjson"

// BuildQueryMachinesJSON returns the command listing machine types along
// with their compat properties.
func BuildQueryMachinesJSON() string {
	json := `{}`
	json, _ = sjson.Set(json, "execute", "query-machines")
	json, _ = sjson.Set(json, "arguments.compat-props", true)
	return json
}

// BuildQOMListTypesJSON returns the command listing every type that
// implements (or is) the given type.
func BuildQOMListTypesJSON(implements string, abstract bool) string {
	json := `{}`
	json, _ = sjson.Set(json, "execute", "qom-list-types")
	json, _ = sjson.Set(json, "arguments.implements", implements)
	json, _ = sjson.Set(json, "arguments.abstract", abstract)
	return json
}

// BuildDeviceListPropertiesJSON returns the command describing the
// properties of a device type.
func BuildDeviceListPropertiesJSON(typename string) string {
	json := `{}`
	json, _ = sjson.Set(json, "execute", "device-list-properties")
	json, _ = sjson.Set(json, "arguments.typename", typename)
	return json
}

// BuildQuitJSON returns the command that terminates the emulator.
func BuildQuitJSON() string {
	json := `{}`
	json, _ = sjson.Set(json, "execute", "quit")
	return json
}
