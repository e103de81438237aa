package quotation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultNumberTemplate renders numbers such as QT-20260301-000042.
const DefaultNumberTemplate = "QT-{YYYY}{MM}{DD}-{SEQ6}"

var paddedSeq = regexp.MustCompile(`\{SEQ(\d+)\}`)

// FormatNumber renders a quotation number from template, the issue date and a
// positive sequence value. Unknown tokens are an error.
func FormatNumber(template string, issuedAt time.Time, seq int64) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("quotation number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid quotation sequence: %d", seq)
	}

	out := strings.NewReplacer(
		"{YYYY}", issuedAt.Format("2006"),
		"{YY}", issuedAt.Format("06"),
		"{MM}", issuedAt.Format("01"),
		"{DD}", issuedAt.Format("02"),
		"{SEQ}", strconv.FormatInt(seq, 10),
	).Replace(template)

	out = paddedSeq.ReplaceAllStringFunc(out, func(token string) string {
		width, err := strconv.Atoi(paddedSeq.FindStringSubmatch(token)[1])
		if err != nil || width <= 0 || width > 20 {
			return token
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unresolved token in quotation number template: %s", out)
	}
	return out, nil
}
