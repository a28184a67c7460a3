package domain

// ExportBundle is the human-readable part of a printed label or document.
type ExportBundle struct {
	TrackingNumber string     `json:"trackingNumber"`
	StatusText     string     `json:"statusText"`
	Weight         float64    `json:"weight"`
	Dimensions     Dimensions `json:"dimensions"`
	Recipient      Party      `json:"recipient"`
}

// ExportPayload is the input of document rendering. QRPayload is always the
// tracking number itself; QRCode is its PNG encoding and QRDataURL the same
// bytes as a data: URL.
type ExportPayload struct {
	QRPayload string       `json:"qrPayload"`
	QRCode    []byte       `json:"-"`
	QRDataURL string       `json:"qrDataUrl"`
	Bundle    ExportBundle `json:"bundle"`
}
