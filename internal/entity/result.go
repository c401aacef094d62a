package entity

type ResultKind uint8

const (
	ResultUnknown              ResultKind = 0
	ResultSuccess              ResultKind = 1
	ResultFailure              ResultKind = 2
	ResultConfirmationRequired ResultKind = 3
	ResultAmbiguous            ResultKind = 4
)

var ResultKindMap = map[ResultKind]string{
	ResultSuccess:              "success",
	ResultFailure:              "failure",
	ResultConfirmationRequired: "confirmation",
	ResultAmbiguous:            "ambiguous",
}

func (k ResultKind) String() string {
	if name, ok := ResultKindMap[k]; ok {
		return name
	}
	return "unknown"
}

// ExecutionResult is a tagged union keyed by Kind. Only the fields of the
// active variant are populated.
type ExecutionResult struct {
	Kind          ResultKind `json:"kind"`
	Message       string     `json:"message,omitempty"`
	Error         string     `json:"error,omitempty"`
	Prompt        string     `json:"prompt,omitempty"`
	PendingIntent *Intent    `json:"pendingIntent,omitempty"`
	Options       []string   `json:"options,omitempty"`
}

func Success(message string) ExecutionResult {
	return ExecutionResult{Kind: ResultSuccess, Message: message}
}

func Failure(err string) ExecutionResult {
	return ExecutionResult{Kind: ResultFailure, Error: err}
}

func ConfirmationRequired(prompt string, pending Intent) ExecutionResult {
	return ExecutionResult{Kind: ResultConfirmationRequired, Prompt: prompt, PendingIntent: &pending}
}

func Ambiguous(options []string) ExecutionResult {
	return ExecutionResult{Kind: ResultAmbiguous, Options: options}
}

func (r ExecutionResult) IsSuccess() bool {
	return r.Kind == ResultSuccess
}

func (r ExecutionResult) IsFailure() bool {
	return r.Kind == ResultFailure
}
