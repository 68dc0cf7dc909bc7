package normalize

import (
	"regexp"
	"strings"

	"github.com/mrlokans/catalogimport/internal/entities"
)

// Category is one row of the classification table.
type Category struct {
	Name     string
	Triggers []string
}

// Categories is evaluated top to bottom and the first row with a matching
// trigger wins, so a book about "science fiction" is Fiction, not Science.
// Reordering rows changes classification results.
var Categories = []Category{
	{Name: "Fiction", Triggers: []string{"fiction", "novel", "novels", "short stories", "fantasy", "romance", "mystery", "thriller", "adventure stories"}},
	{Name: "Poetry", Triggers: []string{"poetry", "poems", "poets", "verse", "sonnets"}},
	{Name: "Drama", Triggers: []string{"drama", "plays", "tragedies", "comedies", "theater", "theatre"}},
	{Name: "Business", Triggers: []string{"business", "entrepreneurship", "management", "marketing", "finance", "economics"}},
	{Name: "Technology", Triggers: []string{"technology", "computers", "computer", "programming", "software", "engineering", "internet"}},
	{Name: "Science", Triggers: []string{"science", "physics", "chemistry", "biology", "mathematics", "astronomy", "natural history"}},
	{Name: "Philosophy", Triggers: []string{"philosophy", "ethics", "stoicism", "stoics", "metaphysics", "logic"}},
	{Name: "Psychology", Triggers: []string{"psychology", "mind", "behavior", "behaviour", "cognition"}},
	{Name: "Self-Help", Triggers: []string{"self-help", "self help", "personal development", "success", "motivation", "habits"}},
	{Name: "Religion", Triggers: []string{"religion", "spirituality", "bible", "theology", "christianity", "buddhism", "islam"}},
	{Name: "History", Triggers: []string{"history", "historical", "war", "civilization", "ancient"}},
	{Name: "Biography", Triggers: []string{"biography", "autobiography", "memoir", "memoirs", "biographies"}},
	{Name: "Health", Triggers: []string{"health", "medicine", "medical", "nutrition", "fitness"}},
	{Name: "Art", Triggers: []string{"art", "painting", "music", "architecture", "photography", "design"}},
	{Name: "Children", Triggers: []string{"juvenile", "children", "children's", "fairy tales", "nursery"}},
}

type compiledCategory struct {
	name    string
	pattern *regexp.Regexp
}

var compiledCategories = compileCategories(Categories)

func compileCategories(table []Category) []compiledCategory {
	out := make([]compiledCategory, 0, len(table))
	for _, c := range table {
		quoted := make([]string, len(c.Triggers))
		for i, t := range c.Triggers {
			quoted[i] = regexp.QuoteMeta(t)
		}
		// Whole-word match: "nonfiction" must not trigger "fiction".
		pattern := regexp.MustCompile(`(^|[^\p{L}\p{N}])(` + strings.Join(quoted, "|") + `)($|[^\p{L}\p{N}])`)
		out = append(out, compiledCategory{name: c.Name, pattern: pattern})
	}
	return out
}

// Classify joins the subject strings, lowercases them and returns the first
// category in table order with a matching trigger, or the default category.
func Classify(subjects ...string) string {
	return classify(compiledCategories, subjects)
}

// ClassifyWith classifies against a caller-provided table.
func ClassifyWith(table []Category, subjects ...string) string {
	return classify(compileCategories(table), subjects)
}

func classify(table []compiledCategory, subjects []string) string {
	text := strings.ToLower(strings.Join(subjects, " | "))
	if strings.TrimSpace(text) == "" {
		return entities.DefaultCategory
	}
	for _, c := range table {
		if c.pattern.MatchString(text) {
			return c.name
		}
	}
	return entities.DefaultCategory
}
