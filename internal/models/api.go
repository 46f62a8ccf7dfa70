package models

// CreateRequest is the body of POST /weather.
type CreateRequest struct {
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Location string `json:"location" validate:"required,min=2"`
	Notes    string `json:"notes" validate:"max=500"`
}

// CreateResponse is returned with 201 after a record is stored.
type CreateResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
