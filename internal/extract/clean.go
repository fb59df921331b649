package extract

import "strings"

// salutations mark where a regulatory circular's recipient line ends
// and the body greeting begins.
var salutations = []string{"Dear ", "Dear,", "Madam", "Sir"}

// CleanRecipients trims the salutation and trailing punctuation off a
// circular's addressee line, leaving only the recipient list.
//
//	"All SCBs ALL AIFs   Dear Madam/Sir," -> "All SCBs ALL AIFs"
func CleanRecipients(line string) string {
	cut := len(line)
	for _, marker := range salutations {
		if idx := strings.Index(line, marker); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	line = line[:cut]
	return strings.TrimRight(strings.TrimSpace(line), ",;:.- ")
}
