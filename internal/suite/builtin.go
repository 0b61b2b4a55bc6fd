package suite

import (
	"strings"
	"unicode"
)

var hexColor = Regex(`#?[0-9A-Fa-f]{6}\b|#?[0-9A-Fa-f]{3}\b`)

func instructCases() []Case {
	return []Case{
		{Name: "S1: List Hidden", Prompt: "Linux command to list all files including hidden.",
			Validator: Contains("ls -a", "ls -A", "ls -la", "ls -al", "ls -1a")},
		{Name: "S2: Disk Free", Prompt: "Linux command to show human readable disk space.",
			Validator: All(ContainsFold("df"), Contains("-h", "-H", "-k", "--human"))},
		{Name: "S3: Find Text", Prompt: "Linux command to search for the word 'error' in file 'app.log'.",
			Validator: All(ContainsFold("grep", "find"), ContainsFold("error"))},
		{Name: "S4: Own Change", Prompt: "Linux command to change owner of 'web' to 'www-data'.",
			Validator: All(Contains("chown"), Contains("www-data"), Contains("web", "/var/www/html"))},
		{Name: "S5: Port List", Prompt: "Linux command to list all open ports and the processes using them.",
			Validator: Contains("netstat", "ss", "lsof")},
		{Name: "S6: Process Kill", Prompt: "Linux command to kill process ID 1234.",
			Validator: All(Contains("kill"), Contains("1234"))},
		{Name: "S7: Create Dir", Prompt: "Linux command to create nested folders 'a/b/c'.",
			Validator: All(Contains("mkdir"), Contains("a/b/c"))},

		{Name: "F1: JSON Array", Prompt: "List 'A, B, C' as a JSON array.",
			Validator: All(Contains("A"), Contains("B"), Contains("C"), HasPrefix("[", "{"))},
		{Name: "F2: JSON Pair", Prompt: "JSON object: 'Status: OK'.",
			Validator: All(ContainsFold("status"), ContainsFold("ok"), Contains("{", `"`))},
		{Name: "F3: CSV Extract", Prompt: "Extract 2nd column from CSV: 'Name,ID\\nVTSTech,101'",
			Validator: All(Contains("101"), Not(Contains("Name", "VTSTech")))},
		{Name: "F4: Lowercase", Prompt: "Convert 'HELLO' to lowercase.",
			Validator: ContainsFold("hello")},
		{Name: "F5: JSON Nested", Prompt: "JSON: 'User' has 'ID' 1.",
			Validator: All(ContainsFold(`"user"`), ContainsFold(`"id"`), Contains("1"))},
		{Name: "F6: No Spaces", Prompt: "Remove spaces from 'V T S'.",
			Validator: func(text string) bool {
				return strings.Contains(strings.ReplaceAll(strings.ToUpper(text), " ", ""), "VTS")
			}},
		{Name: "F7: Hex Color", Prompt: "Hex code for white.", Validator: hexColor},

		{Name: "L1: Reverse Word", Prompt: "Reverse the word 'D-E-B-I-A-N'. Output only the result.",
			Validator: func(text string) bool {
				squashed := strings.NewReplacer("-", "", " ", "").Replace(strings.ToUpper(strings.TrimSpace(text)))
				return squashed == "NAIBED"
			}},
		{Name: "L2: Math Step", Prompt: "Calculate Step 1: 50 / 2 = [?]. Step 2: [Result] + 5 = [?]. Output only the final number.",
			Validator: Word("30")},
		{Name: "L3: Is Prime", Prompt: "Is 7 a prime number? (Yes/No).",
			Validator: func(text string) bool {
				head := strings.ToLower(strings.TrimSpace(text))
				return strings.HasPrefix(head, "yes") || strings.HasPrefix(head, "no")
			}},
		{Name: "L4: Max Val", Prompt: "Largest of: 12, 99, 4.", Validator: Word("99")},
		{Name: "L5: Count Chars", Prompt: "Count the number of times the letter 's' appears in: s | t | a | t | u | s. Result only.",
			Validator: Word("2")},
		{Name: "L6: Simple Logic", Prompt: "If A is true and B is false, what is A AND B?",
			Validator: ContainsFold("false")},
		{Name: "L7: Word Length", Prompt: "Length of 'Python'.", Validator: Word("6")},

		{Name: "C1: No Letter E", Prompt: "Name a color that does not contain the letter 'e'.",
			Validator: All(
				Not(ContainsFold("e")),
				ContainsFold("gray", "pink", "cyan", "brown", "gold", "tan", "sand", "lime",
					"coral", "ivory", "indigo", "navy", "blu", "aqua"),
			)},
		{Name: "C2: One Word", Prompt: "Capital of Germany (1 word).", Validator: ContainsFold("berlin")},
		{Name: "C3: No Numbers", Prompt: "Write the word for the digit '5'. No digits allowed.",
			Validator: All(ContainsFold("five"), Not(Contains("5")))},
		{Name: "C4: Binary State", Prompt: "Light is switched twice. Initial: Off. Final?",
			Validator: ContainsFold("off")},
	}
}

func toolCases() []Case {
	return []Case{
		{Name: "TC1: Current Weather", Prompt: "What's the weather in London?", ExpectsTool: true,
			Validator: ContainsFold("°c", "°f", "temperature", "cloudy", "sunny", "rain")},
		{Name: "TC2: Weather with Units", Prompt: "Temperature in Paris in celsius", ExpectsTool: true,
			Validator: ContainsFold("°c", "celsius")},
		{Name: "TC3: Basic Math", Prompt: "Calculate 15 * 7", ExpectsTool: true, Validator: Word("105")},
		{Name: "TC4: Complex Math", Prompt: "What's the square root of 144?", ExpectsTool: true, Validator: Word("12")},
		{Name: "TC5: User Lookup", Prompt: "Find user with email john@example.com", ExpectsTool: true,
			Validator: Contains("John Doe")},
		{Name: "TC6: User by ID", Prompt: "Get profile for user 42", ExpectsTool: true,
			Validator: Contains("John Doe")},
		{Name: "TC7: Send Email", Prompt: "Email alice@company.com saying 'Meeting at 3pm'", ExpectsTool: true,
			Validator: ContainsFold("sent", "success", "email")},
		{Name: "TC8: File Operation", Prompt: "Create directory /tmp/benchmark_test", ExpectsTool: true,
			Validator: ContainsFold("created", "success", "tmp")},
		{Name: "TC9: No Tool Needed", Prompt: "What's the capital of France?",
			Validator: All(Contains("Paris"), NotToolCall())},
		{Name: "TC10: Ambiguous Query", Prompt: "Can you help me?",
			Validator: All(ContainsFold("help", "assist"), NotToolCall())},
		{Name: "TC11: Weather Forecast", Prompt: "What's the weather forecast for Paris for the next 3 days?", ExpectsTool: true,
			Validator: ContainsFold("forecast", "day", "°c")},
		{Name: "TC12: Air Quality", Prompt: "What's the air quality in London?", ExpectsTool: true,
			Validator: ContainsFold("aqi", "air quality", "pm2.5")},
		{Name: "TC13: Unit Conversion", Prompt: "Convert 100 kilometers to miles", ExpectsTool: true,
			Validator: Any(Contains("62.1"), ContainsFold("miles"))},
		{Name: "TC14: Statistics", Prompt: "Calculate stats for 5, 10, 15, 20, 25", ExpectsTool: true,
			Validator: Any(ContainsFold("mean", "average"), Contains("15"))},
		{Name: "TC15: Random Number", Prompt: "Give me a random number between 1 and 100", ExpectsTool: true,
			Validator: All(hasDigit, Contains("1"), Contains("100"))},
		{Name: "TC16: List Users", Prompt: "Show me all active users", ExpectsTool: true,
			Validator: Contains("John", "Jane", "Alice")},
		{Name: "TC17: Create User", Prompt: "Create a new user named Sarah Jones with email sarah@example.com", ExpectsTool: true,
			Validator: ContainsFold("created", "sarah")},
		{Name: "TC18: List Files", Prompt: "What files are in the current directory?", ExpectsTool: true,
			Validator: ContainsFold(".go", ".py", ".md", ".txt", "file", "directory")},
		{Name: "TC19: Read File", Prompt: "Read the file README.md", ExpectsTool: true,
			Validator: func(text string) bool { return len(text) > 20 }},
		{Name: "TC20: Fetch URL", Prompt: "Fetch the content from https://example.com", ExpectsTool: true,
			Validator: Any(Contains("Example Domain"), ContainsFold("html"))},
		{Name: "TC21: Encode URL", Prompt: "URL encode this string: hello world!", ExpectsTool: true,
			Validator: Contains("hello%20world%21", "%20")},
		{Name: "TC22: Hash Text", Prompt: "Generate SHA256 hash of 'password123'", ExpectsTool: true,
			Validator: Contains("8d969e")},
		{Name: "TC23: Generate Password", Prompt: "Generate a strong password", ExpectsTool: true,
			Validator: All(hasUpper, hasDigit, Contains("!", "@", "#", "$", "%", "^", "&", "*"))},
		{Name: "TC24: Date Calculator", Prompt: "What date is 30 days from 2026-02-13?", ExpectsTool: true,
			Validator: Contains("2026-03-15", "March 15")},
		{Name: "TC25: Timezone Converter", Prompt: "Convert 14:30 from EST to PST", ExpectsTool: true,
			Validator: Contains("11:30", "12:30")},
	}
}

func agentCases() []Case {
	return []Case{
		{Name: "A1: Weather Conversion", Prompt: "Get the weather for London and convert to Fahrenheit.",
			Steps:     []string{"get_weather", "convert_units"},
			Validator: ContainsFold("london", "fahrenheit", "°f")},
		{Name: "A2: User Email", Prompt: "Find user john@example.com and email him 'Hello'",
			Steps:     []string{"find_user", "send_email"},
			Validator: All(ContainsFold("john"), ContainsFold("sent", "email"))},
		{Name: "A3: Secure User Email", Prompt: "Find user 42, generate a 12-char password for them, and email it.",
			Steps:     []string{"get_user", "generate_password", "send_email"},
			Validator: All(ContainsFold("password"), ContainsFold("sent", "email"))},
	}
}

func hasDigit(text string) bool { return strings.IndexFunc(text, unicode.IsDigit) >= 0 }

func hasUpper(text string) bool { return strings.IndexFunc(text, unicode.IsUpper) >= 0 }
