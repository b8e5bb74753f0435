package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"banking-ledger/internal/errors"
)

var validate = validator.New()

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data == nil {
		return
	}
	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")

	statusCode := appErr.HTTPStatus()
	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

// writeServiceError translates a service failure into a response,
// hiding anything that is not a typed application error.
func writeServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		writeError(w, appErr)
		return
	}
	writeError(w, errors.NewAppError(errors.InternalError, "an unexpected error occurred").WithDetails(err.Error()))
}

// decodeAndValidate parses the JSON body into req and runs the
// validator tags over it.
func decodeAndValidate(r *http.Request, req interface{}) *errors.AppError {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return errors.NewAppError(errors.InvalidInput, "invalid request").WithDetails(err.Error())
	}
	return nil
}

// pathID extracts an int64 path variable.
func pathID(r *http.Request, name string) (int64, *errors.AppError) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewAppErrorf(errors.InvalidInput, "invalid %s", name)
	}
	return id, nil
}
