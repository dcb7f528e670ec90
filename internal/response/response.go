package response

// ErrorBody is the JSON shape of every non-success answer. The insight
// routes reply with flat bodies because the app reads `error` at the top level.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	CodeNoEntries      = "NO_ENTRIES"
	MsgUpstreamFailed  = "AI request failed"
	MsgUnexpected      = "Unexpected server error"
	MsgInvalidRequest  = "Invalid request"
	MsgTooManyRequests = "Too many requests from this IP, please try again later."
)

// NoEntries is sent with 200: there is nothing to analyse, which is not an error.
func NoEntries() ErrorBody {
	return ErrorBody{Error: CodeNoEntries}
}

// UpstreamFailed is sent with 502. details must be empty in production.
func UpstreamFailed(details string) ErrorBody {
	return ErrorBody{Error: MsgUpstreamFailed, Details: details}
}

func Unexpected(message string) ErrorBody {
	return ErrorBody{Error: MsgUnexpected, Message: message}
}

func BadRequest(details string) ErrorBody {
	return ErrorBody{Error: MsgInvalidRequest, Details: details}
}

func TooManyRequests() ErrorBody {
	return ErrorBody{Error: MsgTooManyRequests}
}

type Alive struct {
	Status string `json:"status"`
}

func OK() Alive { return Alive{Status: "ok"} }

// ProviderHealth answers the provider connectivity probe, always with 200.
type ProviderHealth struct {
	OK      bool   `json:"ok"`
	Model   string `json:"model,omitempty"`
	Status  int    `json:"status,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func ProviderUp(model string) ProviderHealth {
	return ProviderHealth{OK: true, Model: model}
}

func ProviderDown(status int, code, message string) ProviderHealth {
	return ProviderHealth{OK: false, Status: status, Code: code, Message: message}
}
