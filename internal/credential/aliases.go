package credential

import "strings"

// platformAliases maps historically valid platform names to canonical keys.
// A workflow author may reference a secret by any of its aliases; new aliases
// are added here when a connector is renamed so old workflows keep resolving.
var platformAliases = map[string]string{
	"youtube":          "youtube",
	"youtube_apikey":   "youtube",
	"youtube_api_key":  "youtube",
	"google_sheets":    "google-sheets",
	"google-sheets":    "google-sheets",
	"gsheets":          "google-sheets",
	"slack":            "slack",
	"slack_bot":        "slack",
	"slack_bot_token":  "slack",
	"openai":           "openai",
	"openai_apikey":    "openai",
	"openai_api_key":   "openai",
	"telegram":         "telegram",
	"telegram_bot":     "telegram",
	"discord":          "discord",
	"discord_bot":      "discord",
	"sendgrid":         "sendgrid",
	"sendgrid_apikey":  "sendgrid",
	"airtable":         "airtable",
	"airtable_apikey":  "airtable",
	"airtable_api_key": "airtable",
}

// Canonical maps a platform name or alias to its canonical key.
// Unknown names are returned lowercased and otherwise unchanged.
func Canonical(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := platformAliases[key]; ok {
		return canonical
	}
	return key
}

// Aliases returns a copy of the full alias table, keyed alias -> canonical.
func Aliases() map[string]string {
	out := make(map[string]string, len(platformAliases))
	for alias, canonical := range platformAliases {
		out[alias] = canonical
	}
	return out
}
