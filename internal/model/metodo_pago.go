package model

import (
	"strings"

	"cajapos/internal/money"
)

// MetodoPago is the fixed set of payment methods a till can hold.
type MetodoPago string

const (
	Efectivo      MetodoPago = "efectivo"
	Tarjeta       MetodoPago = "tarjeta"
	Transferencia MetodoPago = "transferencia"
	Consignacion  MetodoPago = "consignacion"
	QR            MetodoPago = "qr"
	Billetera     MetodoPago = "billetera"
	// Bono is counted-only: there is no physical expectation for vouchers,
	// so it never takes part in differences or totals.
	Bono MetodoPago = "bono"
)

// MetodosPago lists every method in report order.
var MetodosPago = []MetodoPago{Efectivo, Tarjeta, Transferencia, Consignacion, QR, Billetera, Bono}

var aliasMetodo = map[string]MetodoPago{
	"efectivo":           Efectivo,
	"cash":               Efectivo,
	"contado":            Efectivo,
	"tarjeta":            Tarjeta,
	"card":               Tarjeta,
	"debito":             Tarjeta,
	"débito":             Tarjeta,
	"credito":            Tarjeta,
	"crédito":            Tarjeta,
	"datafono":           Tarjeta,
	"transferencia":      Transferencia,
	"transfer":           Transferencia,
	"consignacion":       Consignacion,
	"consignación":       Consignacion,
	"deposito":           Consignacion,
	"depósito":           Consignacion,
	"bank_deposit":       Consignacion,
	"qr":                 QR,
	"billetera":          Billetera,
	"nequi":              Billetera,
	"daviplata":          Billetera,
	"third_party_wallet": Billetera,
	"bono":               Bono,
	"bonos":              Bono,
	"voucher":            Bono,
}

// ParseMetodoPago normalizes a raw payment method string. Unknown or empty
// values fall back to Efectivo with ok=false so the caller can report them.
func ParseMetodoPago(raw string) (m MetodoPago, ok bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, " ", "_")
	if m, ok := aliasMetodo[key]; ok {
		return m, true
	}
	return Efectivo, false
}

// Diferenciable reports whether the method is compared against an expectation.
func (m MetodoPago) Diferenciable() bool { return m != Bono }

func (m MetodoPago) Valido() bool {
	for _, x := range MetodosPago {
		if x == m {
			return true
		}
	}
	return false
}

// Vector maps every payment method to an amount.
type Vector map[MetodoPago]money.Money

// NuevoVector returns a vector with every method present at zero.
func NuevoVector() Vector {
	v := make(Vector, len(MetodosPago))
	for _, m := range MetodosPago {
		v[m] = money.Zero
	}
	return v
}

// Completar returns a copy that has every method key; missing keys are zero.
func (v Vector) Completar() Vector {
	out := NuevoVector()
	for m, monto := range v {
		out[m] = monto
	}
	return out
}

// Get returns zero for missing keys.
func (v Vector) Get(m MetodoPago) money.Money {
	if monto, ok := v[m]; ok {
		return monto
	}
	return money.Zero
}

// Total sums the differenced methods only (Bono excluded).
func (v Vector) Total() money.Money {
	total := money.Zero
	for _, m := range MetodosPago {
		if m.Diferenciable() {
			total = total.Add(v.Get(m))
		}
	}
	return total
}

// TodoCero reports whether every method, Bono included, is zero.
func (v Vector) TodoCero() bool {
	for _, m := range MetodosPago {
		if !v.Get(m).IsZero() {
			return false
		}
	}
	return true
}
