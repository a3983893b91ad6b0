package docstore

import "fmt"

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusInfo    Status = "info"
)

// Report is the single JSON document printed for a mutating command.
type Report struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

func ErrorReport(err error) Report {
	return Report{StatusError, err.Error()}
}

func CreateTableReport(result Result) Report {
	switch result.Outcome {
	case OutcomeSuccess:
		return Report{StatusSuccess, fmt.Sprintf("Table '%s' created.", result.Table)}
	case OutcomeAlreadyExists:
		return Report{StatusError, fmt.Sprintf("Table '%s' already exists.", result.Table)}
	default:
		return unexpectedReport(result)
	}
}

func AddDocumentReport(result Result) Report {
	switch result.Outcome {
	case OutcomeSuccess:
		return Report{StatusSuccess, "Document added."}
	default:
		return unexpectedReport(result)
	}
}

func DeleteTableReport(result Result) Report {
	switch result.Outcome {
	case OutcomeSuccess:
		return Report{StatusSuccess, fmt.Sprintf("Table '%s' deleted.", result.Table)}
	case OutcomeNotFound:
		return Report{StatusInfo, fmt.Sprintf("Table '%s' not found, skipping.", result.Table)}
	case OutcomeMissingInput:
		return Report{StatusError, "Table name is required."}
	default:
		return unexpectedReport(result)
	}
}

// SearchResponse is either the result array or, when the table is
// missing, an error Report.
func SearchResponse(result Result) any {
	switch result.Outcome {
	case OutcomeSuccess:
		docs := result.Documents
		if docs == nil {
			docs = []SearchResult{}
		}

		return docs
	case OutcomeNotFound:
		return Report{StatusError, fmt.Sprintf("Table '%s' not found.", result.Table)}
	default:
		return unexpectedReport(result)
	}
}

func unexpectedReport(result Result) Report {
	return Report{StatusError, fmt.Sprintf("Unexpected outcome '%s' for table '%s'.", result.Outcome, result.Table)}
}
