package classify

import (
	"fmt"
	"strings"
	"time"

	"github.com/ledgerline/importer/internal/importer"
)

// DefaultSystemPrompt instructs the model to categorize a CSV block of
// transactions and answer with the published JSON schema. Callers can
// override it per request.
const DefaultSystemPrompt = `You are a financial-data assistant. I will provide you with a CSV file of transactions containing the following columns: Id, Date, Description, Amount, Counterparty. Respond in JSON and say nothing else:

1. Assign each transaction to exactly one category.
2. Use HTT (Hard To Tell) if you can't unambiguously assign a category.
3. Respond with a single JSON object of the shape:
   {"transactions": [{"id": <Id from the input row>, "category": "<category>"}, ...]}
4. Do not wrap the response in Markdown code fences.`

const defaultUserMessage = "Please categorize the following transactions:"

// renderCSV flattens the candidate transactions into the compact tabular
// block sent to the model. The Id column carries the sequence ID used to
// correlate streamed responses.
func renderCSV(txs []*importer.CanonicalTransaction) string {
	var b strings.Builder
	b.WriteString("Id,Date,Description,Amount,Counterparty\n")
	for _, tx := range txs {
		fmt.Fprintf(&b, "%d,%q,%q,%q,%q\n",
			tx.SequenceID,
			tx.Date.Format(time.RFC3339),
			tx.Description,
			tx.Amount.StringFixed(2),
			tx.Counterparty,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}
