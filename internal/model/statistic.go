package model

import "fmt"

// Statistic selects which counter a query aggregates over.
type Statistic string

const (
	StatMessages    Statistic = "messages"
	StatWords       Statistic = "words"
	StatCharacters  Statistic = "characters"
	StatAttachments Statistic = "attachments"
	StatLinks       Statistic = "links"
)

// ParseStatistic validates a statistic name; empty defaults to messages.
func ParseStatistic(s string) (Statistic, error) {
	switch Statistic(s) {
	case "":
		return StatMessages, nil
	case StatMessages, StatWords, StatCharacters, StatAttachments, StatLinks:
		return Statistic(s), nil
	}
	return "", fmt.Errorf("unknown statistic %q", s)
}

// Label returns the axis label used by graph requests.
func (s Statistic) Label() string {
	switch s {
	case StatWords:
		return "# of Words"
	case StatCharacters:
		return "# of Characters"
	case StatAttachments:
		return "# of Attachments"
	case StatLinks:
		return "# of Links"
	default:
		return "# of Messages"
	}
}

// TitleWord returns the capitalized noun used in titles and summaries.
func (s Statistic) TitleWord() string {
	switch s {
	case StatWords:
		return "Words"
	case StatCharacters:
		return "Characters"
	case StatAttachments:
		return "Attachments"
	case StatLinks:
		return "Links"
	default:
		return "Messages"
	}
}
