package models

// Payment modalities
const (
	PaymentPix           = "pix"
	PaymentBoleto        = "boleto"
	PaymentTransferencia = "transferencia"
	PaymentCartaoCredito = "cartao_credito"
	PaymentFaturado      = "faturado"
)

// PaymentMethod is one entry of the fixed payment catalog
type PaymentMethod struct {
	Code          string `json:"code"`
	Label         string `json:"label"`
	RequiresProof bool   `json:"requires_proof"`
	UsesGateway   bool   `json:"uses_gateway"` // charged through the online gateway on confirmation
}

var paymentCatalog = []PaymentMethod{
	{Code: PaymentPix, Label: "PIX", RequiresProof: true},
	{Code: PaymentBoleto, Label: "Boleto bancário", RequiresProof: true},
	{Code: PaymentTransferencia, Label: "Transferência bancária", RequiresProof: true},
	{Code: PaymentCartaoCredito, Label: "Cartão de crédito", UsesGateway: true},
	{Code: PaymentFaturado, Label: "Faturado"},
}

// PaymentCatalog returns a copy of every accepted payment modality
func PaymentCatalog() []PaymentMethod {
	out := make([]PaymentMethod, len(paymentCatalog))
	copy(out, paymentCatalog)
	return out
}

// LookupPaymentMethod finds a modality by code
func LookupPaymentMethod(code string) (PaymentMethod, bool) {
	for _, m := range paymentCatalog {
		if m.Code == code {
			return m, true
		}
	}
	return PaymentMethod{}, false
}
