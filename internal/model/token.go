package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseKindToken extracts the event kind name from the gateway's textual
// rendering of a kind token, e.g. `EventKind("outgoing-payment-started")`.
// The upstream token type exposes no structured accessor, so the name has to
// be scraped out of the debug rendering; any change to that rendering shows
// up here as a parse error rather than a misclassified event.
func ParseKindToken(input string) (string, error) {
	start := strings.Index(input, "(")
	end := strings.LastIndex(input, ")")
	if start < 0 || end < 0 || end < start {
		return "", fmt.Errorf("malformed kind token: %q", input)
	}

	inner := input[start+1 : end]
	inner = strings.TrimPrefix(inner, `"`)
	inner = strings.TrimSuffix(inner, `"`)
	if inner == "" {
		return "", fmt.Errorf("empty kind token: %q", input)
	}
	return inner, nil
}

// ParseLogOrdinal extracts the integer sequence number from the textual
// rendering of a log id token, e.g. `EventLogId(1234)`. The ordinal orders
// entries within a federation and serves as the resume watermark.
func ParseLogOrdinal(input string) (int64, error) {
	start := strings.Index(input, "(")
	end := strings.Index(input, ")")
	if start < 0 || end < 0 || end < start {
		return 0, fmt.Errorf("malformed log id token: %q", input)
	}

	ordinal, err := strconv.ParseInt(input[start+1:end], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric log id token: %q", input)
	}
	return ordinal, nil
}
