package receipts

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protowire"

	"retailstore/backend/internal/domain"
)

// Binary records are "RCPT", a version byte, then protobuf wire-format fields.
// Unknown fields are skipped on decode so newer writers stay readable.
const (
	codecVersion byte = 1
)

var (
	magic = []byte("RCPT")

	ErrBadMagic           = errors.New("not a receipt record")
	ErrUnsupportedVersion = errors.New("unsupported receipt record version")
)

const (
	fieldNumber        protowire.Number = 1
	fieldCashierID     protowire.Number = 2
	fieldCashierName   protowire.Number = 3
	fieldCashierSalary protowire.Number = 4
	fieldCreatedAt     protowire.Number = 5
	fieldClosed        protowire.Number = 6
	fieldLine          protowire.Number = 7

	fieldLineProductID   protowire.Number = 1
	fieldLineProductName protowire.Number = 2
	fieldLineQuantity    protowire.Number = 3
	fieldLineUnitPrice   protowire.Number = 4
)

func Marshal(r domain.Receipt) []byte {
	b := append([]byte(nil), magic...)
	b = append(b, codecVersion)

	b = protowire.AppendTag(b, fieldNumber, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Number))
	b = appendString(b, fieldCashierID, r.Cashier.ID)
	b = appendString(b, fieldCashierName, r.Cashier.Name)
	b = appendString(b, fieldCashierSalary, r.Cashier.MonthlySalary.String())
	b = protowire.AppendTag(b, fieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(r.CreatedAt.UnixNano()))
	b = protowire.AppendTag(b, fieldClosed, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(r.Closed))

	for _, line := range r.Lines {
		var lb []byte
		lb = appendString(lb, fieldLineProductID, line.ProductID)
		lb = appendString(lb, fieldLineProductName, line.ProductName)
		lb = protowire.AppendTag(lb, fieldLineQuantity, protowire.VarintType)
		lb = protowire.AppendVarint(lb, uint64(line.Quantity))
		lb = appendString(lb, fieldLineUnitPrice, line.UnitPrice.String())

		b = protowire.AppendTag(b, fieldLine, protowire.BytesType)
		b = protowire.AppendBytes(b, lb)
	}
	return b
}

func Unmarshal(data []byte) (domain.Receipt, error) {
	if !bytes.HasPrefix(data, magic) {
		return domain.Receipt{}, ErrBadMagic
	}
	data = data[len(magic):]
	if len(data) == 0 {
		return domain.Receipt{}, fmt.Errorf("%w: missing version", ErrBadMagic)
	}
	if data[0] != codecVersion {
		return domain.Receipt{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[0])
	}
	data = data[1:]

	var r domain.Receipt
	r.Cashier.MonthlySalary = decimal.Zero
	err := consumeFields(data, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch {
		case num == fieldNumber && typ == protowire.VarintType:
			r.Number = int64(varint)
		case num == fieldCashierID && typ == protowire.BytesType:
			r.Cashier.ID = string(value)
		case num == fieldCashierName && typ == protowire.BytesType:
			r.Cashier.Name = string(value)
		case num == fieldCashierSalary && typ == protowire.BytesType:
			salary, err := decimal.NewFromString(string(value))
			if err != nil {
				return fmt.Errorf("cashier salary: %w", err)
			}
			r.Cashier.MonthlySalary = salary
		case num == fieldCreatedAt && typ == protowire.VarintType:
			r.CreatedAt = time.Unix(0, protowire.DecodeZigZag(varint)).UTC()
		case num == fieldClosed && typ == protowire.VarintType:
			r.Closed = protowire.DecodeBool(varint)
		case num == fieldLine && typ == protowire.BytesType:
			line, err := unmarshalLine(value)
			if err != nil {
				return err
			}
			r.Lines = append(r.Lines, line)
		}
		return nil
	})
	if err != nil {
		return domain.Receipt{}, err
	}
	return r, nil
}

func unmarshalLine(data []byte) (domain.ReceiptLine, error) {
	line := domain.ReceiptLine{UnitPrice: decimal.Zero}
	err := consumeFields(data, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch {
		case num == fieldLineProductID && typ == protowire.BytesType:
			line.ProductID = string(value)
		case num == fieldLineProductName && typ == protowire.BytesType:
			line.ProductName = string(value)
		case num == fieldLineQuantity && typ == protowire.VarintType:
			line.Quantity = int(varint)
		case num == fieldLineUnitPrice && typ == protowire.BytesType:
			price, err := decimal.NewFromString(string(value))
			if err != nil {
				return fmt.Errorf("line unit price: %w", err)
			}
			line.UnitPrice = price
		}
		return nil
	})
	return line, err
}

// consumeFields walks a wire-format buffer. For varint fields value is nil; for
// length-delimited fields varint is zero. Other wire types are skipped.
func consumeFields(data []byte, fn func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if err := fn(num, typ, nil, v); err != nil {
				return err
			}
			data = data[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			if err := fn(num, typ, v, 0); err != nil {
				return err
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}
