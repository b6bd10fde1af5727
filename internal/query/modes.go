package query

import (
	"fmt"

	"github.com/statbot-io/statbot/internal/errors"
)

// PrivacyMode controls how privacy-flagged rows appear in query output.
type PrivacyMode string

const (
	// PrivacyExclude drops private rows entirely, totals included.
	PrivacyExclude PrivacyMode = "exclude"
	// PrivacyHide keeps private rows in listings and totals but omits them
	// from the top-N ranking.
	PrivacyHide PrivacyMode = "hide"
	// PrivacyHideName keeps private rows but masks their label.
	PrivacyHideName PrivacyMode = "hide_name"
	// PrivacyShow applies no redaction.
	PrivacyShow PrivacyMode = "show"
	// PrivacyEphemeral leaves rows untouched and requests private delivery.
	PrivacyEphemeral PrivacyMode = "ephemeral"
	// PrivacyEphemeralIfPrivate requests private delivery only when at
	// least one private row contributed.
	PrivacyEphemeralIfPrivate PrivacyMode = "ephemeral_only_if_private"
	// PrivacyAggregate merges private thread rows sharing a grouping key
	// into one synthetic row.
	PrivacyAggregate PrivacyMode = "aggregate"
	// PrivacyAggregateAll merges every thread row sharing a grouping key.
	PrivacyAggregateAll PrivacyMode = "aggregate_all"
)

// behavior is the redaction recipe for one privacy mode. All query paths
// consume modes through this table only.
type behavior struct {
	dropPrivate     bool
	hideFromRanking bool
	maskName        bool
	mergePrivate    bool
	mergeAll        bool
	ephemeral       bool
	ephemeralIfPriv bool
}

var behaviors = map[PrivacyMode]behavior{
	PrivacyExclude:            {dropPrivate: true},
	PrivacyHide:               {hideFromRanking: true},
	PrivacyHideName:           {maskName: true},
	PrivacyShow:               {},
	PrivacyEphemeral:          {ephemeral: true},
	PrivacyEphemeralIfPrivate: {ephemeralIfPriv: true},
	PrivacyAggregate:          {mergePrivate: true},
	PrivacyAggregateAll:       {mergePrivate: true, mergeAll: true},
}

// ParsePrivacyMode maps a request string to a mode. Empty selects exclude,
// the conservative default.
func ParsePrivacyMode(s string) (PrivacyMode, error) {
	if s == "" {
		return PrivacyExclude, nil
	}
	m := PrivacyMode(s)
	if _, ok := behaviors[m]; !ok {
		return "", errors.Validation(fmt.Sprintf("unknown privacy mode %q", s))
	}
	return m, nil
}

// BotMode controls whether bot-authored rows participate.
type BotMode string

const (
	BotExclude BotMode = "exclude"
	BotInclude BotMode = "include"
	BotOnly    BotMode = "only"
)

// ParseBotMode maps a request string to a mode. Empty selects exclude.
func ParseBotMode(s string) (BotMode, error) {
	switch s {
	case "":
		return BotExclude, nil
	case string(BotExclude), string(BotInclude), string(BotOnly):
		return BotMode(s), nil
	}
	return "", errors.Validation(fmt.Sprintf("unknown bot mode %q", s))
}

// filter returns the is_bot restriction for the mode, nil for include.
func (m BotMode) filter() *bool {
	switch m {
	case BotExclude:
		v := false
		return &v
	case BotOnly:
		v := true
		return &v
	}
	return nil
}
