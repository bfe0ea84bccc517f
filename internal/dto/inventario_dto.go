package dto

type MovimientoStockRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Tipo       string `json:"tipo"        validate:"required,oneof=ENTRADA SALIDA"`
	Cantidad   int    `json:"cantidad"    validate:"required,min=1"`
	Nota       string `json:"nota"`
	VentaID    string `json:"venta_id"    validate:"omitempty,uuid"`
}

type MovimientoStockResponse struct {
	ID         string  `json:"id"`
	ProductoID string  `json:"producto_id"`
	Tipo       string  `json:"tipo"`
	Cantidad   int     `json:"cantidad"`
	Nota       string  `json:"nota"`
	VentaID    *string `json:"venta_id"`
	Stock      *int    `json:"stock,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// MovimientoStockFilter is bound from the query string of GET /v1/inventario/movimientos.
type MovimientoStockFilter struct {
	ProductoID string `form:"producto_id"     validate:"omitempty,uuid"`
	VentaID    string `form:"venta_id"        validate:"omitempty,uuid"`
	Tipo       string `form:"tipo"            validate:"omitempty,oneof=ENTRADA SALIDA"`
	Page       int    `form:"page,default=1"  validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type MovimientoStockListResponse struct {
	Data  []MovimientoStockResponse `json:"data"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Limit int                       `json:"limit"`
}

// CreditoPendienteResponse is a void credit parked after exhausting its retries.
type CreditoPendienteResponse struct {
	VentaID    string `json:"venta_id"`
	ProductoID string `json:"producto_id"`
	Cantidad   int    `json:"cantidad"`
	Nota       string `json:"nota"`
	Motivo     string `json:"motivo"`
	Intentos   int    `json:"intentos"`
	FallidoEn  string `json:"fallido_en"`
}
