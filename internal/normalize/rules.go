package normalize

import "strings"

// synonym lists the keys models use in place of a declared parameter.
type synonym struct {
	param string
	keys  []string
}

// rule is the repair table of one tool.
type rule struct {
	// positional receives arguments sent as a bare scalar or list.
	positional string
	synonyms   []synonym
	// fallbacks replace values that cannot be coerced to the declared type.
	fallbacks map[string]any
	fixup     func(args map[string]any)
}

// wrapperKeys are keys a model nests the whole argument mapping under.
var wrapperKeys = []string{"input", "arguments", "parameters", "params"}

var rules = map[string]rule{
	"get_weather": {
		positional: "location",
		synonyms: []synonym{
			{"location", []string{"city", "place", "loc", "location_name"}},
			{"unit", []string{"units"}},
		},
	},
	"get_forecast": {
		positional: "location",
		synonyms: []synonym{
			{"location", []string{"city", "place"}},
			{"days", []string{"num_days", "day_count"}},
		},
		fallbacks: map[string]any{"days": 5},
	},
	"get_air_quality": {
		positional: "city",
		synonyms:   []synonym{{"city", []string{"location", "place"}}},
	},
	"calculator": {
		positional: "expression",
		synonyms:   []synonym{{"expression", []string{"expr", "input", "query", "equation", "math", "formula"}}},
	},
	"convert_units": {
		synonyms: []synonym{
			{"value", []string{"amount", "quantity"}},
			{"from_unit", []string{"from", "unit_from", "source_unit"}},
			{"to_unit", []string{"to", "unit_to", "target_unit"}},
		},
	},
	"generate_random_number": {
		synonyms: []synonym{
			{"min_val", []string{"min", "minimum", "low", "start"}},
			{"max_val", []string{"max", "maximum", "high", "end"}},
		},
		fallbacks: map[string]any{"min_val": 0, "max_val": 100},
	},
	"calculate_stats": {
		positional: "numbers",
		synonyms:   []synonym{{"numbers", []string{"values", "data", "nums", "list"}}},
	},
	"find_user": {
		positional: "email",
		synonyms:   []synonym{{"email", []string{"user_email", "email_address", "user", "name"}}},
	},
	"get_user": {
		positional: "user_id",
		synonyms:   []synonym{{"user_id", []string{"id", "userid", "uid", "user"}}},
	},
	"list_users": {
		synonyms: []synonym{{"active_only", []string{"active"}}},
	},
	"create_user": {
		synonyms: []synonym{{"name", []string{"username", "full_name"}}},
	},
	"send_email": {
		positional: "to",
		synonyms: []synonym{
			{"to", []string{"recipient", "email", "to_email", "address"}},
			{"subject", []string{"title"}},
			{"body", []string{"message", "content", "text"}},
		},
	},
	"send_sms": {
		synonyms: []synonym{
			{"phone_number", []string{"phone", "number", "to", "recipient"}},
			{"message", []string{"text", "body", "content"}},
		},
	},
	"create_directory": {
		positional: "path",
		synonyms:   []synonym{{"path", []string{"dir", "directory", "folder", "dirname", "name"}}},
	},
	"list_files": {
		positional: "path",
		synonyms:   []synonym{{"path", []string{"dir", "directory", "folder"}}},
	},
	"read_file": {
		positional: "path",
		synonyms:   []synonym{{"path", []string{"file", "filename", "file_path", "filepath"}}},
		fallbacks:  map[string]any{"max_lines": 50},
	},
	"write_file": {
		synonyms: []synonym{
			{"path", []string{"file", "filename", "file_path", "filepath"}},
			{"content", []string{"text", "data", "body"}},
		},
	},
	"delete_file": {
		positional: "path",
		synonyms:   []synonym{{"path", []string{"file", "filename", "file_path", "filepath"}}},
	},
	"fetch_url": {
		positional: "url",
		synonyms:   []synonym{{"url", []string{"link", "uri", "address", "website"}}},
		fallbacks:  map[string]any{"timeout": 10},
	},
	"ping_host": {
		positional: "host",
		synonyms:   []synonym{{"host", []string{"hostname", "address", "ip", "url", "domain"}}},
	},
	"encode_url": {
		positional: "text",
		synonyms:   []synonym{{"text", []string{"url", "string", "input", "value"}}},
	},
	"decode_url": {
		positional: "encoded",
		synonyms:   []synonym{{"encoded", []string{"url", "text", "string", "input", "value"}}},
	},
	"hash_text": {
		positional: "text",
		synonyms: []synonym{
			{"text", []string{"input", "string", "data", "value"}},
			{"algorithm", []string{"algo", "hash", "method", "type"}},
		},
	},
	"generate_password": {
		positional: "length",
		synonyms:   []synonym{{"length", []string{"len", "size", "chars", "characters", "num_chars"}}},
		fallbacks:  map[string]any{"length": 12},
	},
	"current_time": {
		positional: "timezone",
		synonyms:   []synonym{{"timezone", []string{"tz", "zone"}}},
	},
	"date_calculator": {
		positional: "start_date",
		synonyms: []synonym{
			{"start_date", []string{"date", "base_date", "from_date", "start"}},
			{"days_to_add", []string{"add", "add_days"}},
			{"days_to_subtract", []string{"subtract", "subtract_days"}},
		},
		fallbacks: map[string]any{"days_to_add": 0, "days_to_subtract": 0},
		fixup:     signedDays,
	},
	"timezone_converter": {
		positional: "time_str",
		synonyms: []synonym{
			{"time_str", []string{"time", "timestamp", "t"}},
			{"from_tz", []string{"from", "source_tz", "from_timezone"}},
			{"to_tz", []string{"to", "target_tz", "to_timezone"}},
		},
	},
}

// signedDays folds {"days": n, "operation": "subtract"} into the declared
// add/subtract parameters.
func signedDays(args map[string]any) {
	days, ok := args["days"]
	if !ok {
		return
	}
	key := "days_to_add"
	if op, _ := args["operation"].(string); strings.Contains(strings.ToLower(op), "sub") {
		key = "days_to_subtract"
	}
	if _, taken := args[key]; !taken {
		args[key] = days
	}
	delete(args, "days")
	delete(args, "operation")
}
