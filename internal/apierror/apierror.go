// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// Codes let clients branch without parsing Detail.
const (
	CodeValidacion           = "VALIDACION"
	CodeConfirmacion         = "CONFIRMACION_REQUERIDA"
	CodeCajaCerrada          = "CAJA_CERRADA"
	CodeVentaAnulada         = "VENTA_YA_ANULADA"
	CodeArqueoDuplicado      = "ARQUEO_DUPLICADO"
	CodeNoEncontrado         = "NO_ENCONTRADO"
	CodePersistenciaCaida    = "PERSISTENCIA_NO_DISPONIBLE"
	CodeInterno              = "INTERNO"
	CodeAutenticacion        = "NO_AUTENTICADO"
	CodePermisosInsuficiente = "SIN_PERMISO"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Errores and Advertencias carry arqueo validation output so the client can
// render it inline.
type APIError struct {
	Detail       string   `json:"detail"`
	Code         string   `json:"code,omitempty"`
	Errores      []string `json:"errores,omitempty"`
	Advertencias []string `json:"advertencias,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

func WithCode(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Code: CodeValidacion, Fields: fields}
}
