// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/retail-pos-backend/internal/config"
	"github.com/your-org/retail-pos-backend/internal/domain/sales"
)

// Service renders sales receipts as PDF documents
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// ReceiptLine is one printable line on a receipt. The handler resolves
// product names before rendering so the template stays dumb.
type ReceiptLine struct {
	Description string
	Quantity    int
	UnitPrice   string
	Total       string
}

// ReceiptData carries everything the receipt template needs
type ReceiptData struct {
	StoreName         string
	Footer            string
	TransactionNumber string
	TransactionType   string
	IssuedAt          string
	Lines             []ReceiptLine
	Subtotal          string
	DiscountAmount    string
	TaxAmount         string
	TotalAmount       string
	AmountPaid        string
	ChangeGiven       string
	Payments          []ReceiptPayment
	PointsEarned      int
	PointsRedeemed    int
	Currency          string
}

// ReceiptPayment is one tender line on the receipt
type ReceiptPayment struct {
	Method string
	Amount string
}

// GenerateReceipt renders a receipt PDF for a completed transaction
func (s *Service) GenerateReceipt(txn *sales.Transaction, lines []ReceiptLine) (*bytes.Buffer, error) {
	issuedAt := txn.CreatedAt
	if txn.CompletedAt != nil {
		issuedAt = *txn.CompletedAt
	}

	data := ReceiptData{
		StoreName:         s.config.Receipt.StoreName,
		Footer:            s.config.Receipt.Footer,
		TransactionNumber: txn.TransactionNumber,
		TransactionType:   string(txn.Type),
		IssuedAt:          issuedAt.Format("January 2, 2006 3:04 PM"),
		Lines:             lines,
		Subtotal:          txn.Subtotal.StringFixed(2),
		DiscountAmount:    txn.DiscountAmount.StringFixed(2),
		TaxAmount:         txn.TaxAmount.StringFixed(2),
		TotalAmount:       txn.TotalAmount.StringFixed(2),
		AmountPaid:        txn.AmountPaid.StringFixed(2),
		ChangeGiven:       txn.ChangeGiven.StringFixed(2),
		PointsEarned:      txn.LoyaltyPointsEarned,
		PointsRedeemed:    txn.LoyaltyPointsRedeemed,
		Currency:          s.config.Sales.Currency,
	}
	for _, p := range txn.Payments {
		data.Payments = append(data.Payments, ReceiptPayment{
			Method: p.PaymentMethod,
			Amount: p.Amount.StringFixed(2),
		})
	}

	htmlContent, err := s.generateHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(true)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.Zoom.Set(0.95)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// generateHTML generates HTML content from the receipt template
func (s *Service) generateHTML(data ReceiptData) (string, error) {
	tmpl := template.Must(template.New("receipt").Parse(receiptTemplate))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// FileName builds a download file name for a receipt
func FileName(txn *sales.Transaction) string {
	return fmt.Sprintf("receipt-%s-%s.pdf", txn.TransactionNumber, time.Now().Format("20060102"))
}

// Receipt HTML template
const receiptTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Receipt {{.TransactionNumber}}</title>
    <style>
        body {
            font-family: "Courier New", monospace;
            margin: 0;
            padding: 20px;
            color: #111;
            font-size: 13px;
        }
        .header {
            text-align: center;
            margin-bottom: 20px;
            border-bottom: 1px dashed #333;
            padding-bottom: 10px;
        }
        .store-name {
            font-size: 20px;
            font-weight: bold;
        }
        .meta {
            margin-bottom: 15px;
        }
        .meta p {
            margin: 2px 0;
        }
        .items-table {
            width: 100%;
            border-collapse: collapse;
            margin-bottom: 15px;
        }
        .items-table th,
        .items-table td {
            padding: 4px 2px;
            text-align: left;
        }
        .items-table th {
            border-bottom: 1px solid #333;
        }
        .items-table .qty-col,
        .items-table .price-col,
        .items-table .total-col {
            text-align: right;
            width: 70px;
        }
        .totals {
            width: 100%;
            border-top: 1px dashed #333;
            padding-top: 5px;
        }
        .totals td {
            padding: 2px;
        }
        .totals .label {
            text-align: right;
        }
        .totals .amount {
            text-align: right;
            width: 100px;
        }
        .total-row {
            font-size: 15px;
            font-weight: bold;
        }
        .loyalty {
            margin-top: 10px;
            font-size: 12px;
        }
        .footer {
            margin-top: 25px;
            padding-top: 10px;
            border-top: 1px dashed #333;
            text-align: center;
            font-size: 12px;
        }
    </style>
</head>
<body>
    <div class="header">
        <div class="store-name">{{.StoreName}}</div>
    </div>

    <div class="meta">
        <p><strong>Receipt:</strong> {{.TransactionNumber}}</p>
        <p><strong>Type:</strong> {{.TransactionType}}</p>
        <p><strong>Date:</strong> {{.IssuedAt}}</p>
    </div>

    <table class="items-table">
        <thead>
            <tr>
                <th>Item</th>
                <th class="qty-col">Qty</th>
                <th class="price-col">Price</th>
                <th class="total-col">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range .Lines}}
            <tr>
                <td>{{.Description}}</td>
                <td class="qty-col">{{.Quantity}}</td>
                <td class="price-col">{{.UnitPrice}}</td>
                <td class="total-col">{{.Total}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <table class="totals">
        <tr>
            <td class="label">Subtotal:</td>
            <td class="amount">{{.Subtotal}} {{.Currency}}</td>
        </tr>
        <tr>
            <td class="label">Discount:</td>
            <td class="amount">-{{.DiscountAmount}} {{.Currency}}</td>
        </tr>
        <tr>
            <td class="label">Tax:</td>
            <td class="amount">{{.TaxAmount}} {{.Currency}}</td>
        </tr>
        <tr class="total-row">
            <td class="label">Total:</td>
            <td class="amount">{{.TotalAmount}} {{.Currency}}</td>
        </tr>
        {{range .Payments}}
        <tr>
            <td class="label">{{.Method}}:</td>
            <td class="amount">{{.Amount}} {{$.Currency}}</td>
        </tr>
        {{end}}
        <tr>
            <td class="label">Paid:</td>
            <td class="amount">{{.AmountPaid}} {{.Currency}}</td>
        </tr>
        <tr>
            <td class="label">Change:</td>
            <td class="amount">{{.ChangeGiven}} {{.Currency}}</td>
        </tr>
    </table>

    {{if or .PointsEarned .PointsRedeemed}}
    <div class="loyalty">
        {{if .PointsEarned}}<p>Loyalty points earned: {{.PointsEarned}}</p>{{end}}
        {{if .PointsRedeemed}}<p>Loyalty points redeemed: {{.PointsRedeemed}}</p>{{end}}
    </div>
    {{end}}

    <div class="footer">
        <p>{{.Footer}}</p>
    </div>
</body>
</html>
`
