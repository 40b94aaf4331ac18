package pipeline

import (
	"fmt"
	"os"

	"sortable/internal"
)

// ExtractListingsFromInput reads one standalone feed file for the
// one-shot run command, without a surrounding email envelope.
func ExtractListingsFromInput(inputType string, input string) ([]internal.Listing, error) {
	switch inputType {
	case "text":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		return parseFeedText(string(blob)), nil
	case "html":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		return parseFeedHTMLTable(string(blob)), nil
	case "jsonl":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		return parseJSONLines(blob), nil
	case "xlsx":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		return parseXLSX(blob)
	case "pdf":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		return parsePDF(blob)
	default:
		return nil, fmt.Errorf("unsupported input type: %s", inputType)
	}
}
