package research

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"concierge/internal/queue"
)

// SystemPrompt instructs the model to return a single JSON object.
const SystemPrompt = `You research hotel guests using public sources only.
Return JSON only with this shape:
{"found": bool, "summary": string, "occupation": string, "company": string,
 "location": string, "followers": number, "net_worth": string,
 "vip_score": number, "sources": [{"title": string, "url": string}]}
vip_score is 0 to 10. followers is the combined public social audience.
When you cannot confidently identify the person, return {"found": false}.
Never guess or invent facts.`

var nameCaser = cases.Title(language.Und)

// NormalizeName collapses whitespace and title-cases a guest name so lookups
// for "JANE  doe" and "Jane Doe" are phrased identically.
func NormalizeName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return nameCaser.String(strings.ToLower(strings.Join(fields, " ")))
}

// BuildPrompt renders the per-guest user prompt.
func BuildPrompt(guest queue.Guest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Guest name: %s\n", NormalizeName(guest.Name))
	if company := strings.TrimSpace(guest.Company); company != "" {
		fmt.Fprintf(&b, "Company: %s\n", company)
	}
	location := joinNonEmpty(", ", guest.City, guest.Country)
	if location != "" {
		fmt.Fprintf(&b, "Location: %s\n", location)
	}
	if email := strings.TrimSpace(guest.Email); email != "" {
		if at := strings.LastIndex(email, "@"); at >= 0 && at < len(email)-1 {
			fmt.Fprintf(&b, "Email domain: %s\n", email[at+1:])
		}
	}
	b.WriteString("Identify this person and describe their public profile.")
	return b.String()
}

func joinNonEmpty(sep string, values ...string) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, sep)
}
