package block

// DefaultLanguage is the language a fresh code block starts with.
const DefaultLanguage = "javascript"

// Languages enumerates the tags the (external) syntax highlighter accepts.
var Languages = []string{
	"javascript",
	"typescript",
	"python",
	"go",
	"rust",
	"java",
	"c",
	"cpp",
	"csharp",
	"ruby",
	"php",
	"html",
	"css",
	"sql",
	"bash",
	"json",
	"yaml",
	"markdown",
	"plaintext",
}

var languageSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Languages))
	for _, l := range Languages {
		set[l] = struct{}{}
	}
	return set
}()

func ValidLanguage(lang string) bool {
	_, ok := languageSet[lang]
	return ok
}

// NormalizeLanguage maps unknown tags to plaintext so the highlighter never
// sees an unexpected value.
func NormalizeLanguage(lang string) string {
	if ValidLanguage(lang) {
		return lang
	}
	return "plaintext"
}
