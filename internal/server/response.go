package server

// Response is the JSON envelope for every HTTP reply.
type Response struct {
	Status     string `json:"status"` // "success" or "error"
	StatusCode int    `json:"status_code"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
}

func Success(statusCode int, data any) Response {
	return Response{Status: "success", StatusCode: statusCode, Data: data}
}

func Error(statusCode int, err string) Response {
	return Response{Status: "error", StatusCode: statusCode, Error: err}
}
