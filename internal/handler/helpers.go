package handler

import (
	"errors"
	"net/http"
	"reflect"

	"cajapos/internal/apierror"
	"cajapos/internal/middleware"
	"cajapos/internal/money"
	"cajapos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register money.Money and decimal.Decimal as numeric types so that
	// validator tags like min=0 work without panicking on struct kinds.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		switch v := field.Interface().(type) {
		case money.Money:
			f, _ := v.Decimal().Float64()
			return f
		case decimal.Decimal:
			f, _ := v.Float64()
			return f
		}
		return nil
	}, money.Money{}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails; the
// caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQueryAndValidate is bindAndValidate for query strings.
func bindQueryAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(name+" invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// cajeroDeToken returns the cashier id the token was issued to.
func cajeroDeToken(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, apierror.WithCode(apierror.CodeAutenticacion, "Autenticacion requerida"))
		return uuid.Nil, false
	}
	id, ok := claims.CajeroID()
	if !ok {
		c.JSON(http.StatusUnauthorized, apierror.WithCode(apierror.CodeAutenticacion, "Token sin cajero"))
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUID(raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// respondError maps service errors onto status codes. Anything unknown is
// logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	var (
		ve *service.ValidationError
		ce *service.ConfirmacionRequeridaError
		le *service.ReconciliationLockedError
		pe *service.PersistenceUnavailableError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, &apierror.APIError{
			Detail:       "Error de validacion",
			Code:         apierror.CodeValidacion,
			Errores:      ve.Errores,
			Advertencias: ve.Advertencias,
		})
	case errors.As(err, &ce):
		c.JSON(http.StatusConflict, &apierror.APIError{
			Detail:       "El arqueo tiene advertencias; confirme para finalizar",
			Code:         apierror.CodeConfirmacion,
			Advertencias: ce.Advertencias,
		})
	case errors.As(err, &le):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeCajaCerrada, le.Error()))
	case errors.Is(err, service.ErrVentaYaAnulada):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeVentaAnulada, err.Error()))
	case errors.Is(err, service.ErrArqueoDuplicado):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeArqueoDuplicado, err.Error()))
	case errors.Is(err, service.ErrTurnoAjeno):
		c.JSON(http.StatusForbidden, apierror.WithCode(apierror.CodePermisosInsuficiente, err.Error()))
	case errors.Is(err, service.ErrNoEncontrado):
		c.JSON(http.StatusNotFound, apierror.WithCode(apierror.CodeNoEncontrado, "Recurso no encontrado"))
	case errors.As(err, &pe):
		log.Error().Err(pe.Err).Str("op", pe.Op).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Msg("persistence unavailable")
		c.Header("Retry-After", "30")
		c.JSON(http.StatusServiceUnavailable, apierror.WithCode(apierror.CodePersistenciaCaida,
			"El almacenamiento no está disponible; intente nuevamente"))
	default:
		log.Error().Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("unhandled service error")
		c.JSON(http.StatusInternalServerError, apierror.WithCode(apierror.CodeInterno, "Error interno del servidor"))
	}
}
