package meta

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/rbaliyan/datapipeline/payload"
	"github.com/rbaliyan/datapipeline/schema"
)

// TransactionIDSchema holds the Avro schema for transaction id attributes.
// Register it with the schema registry to obtain the id passed to
// NewTransactionID.
//
//go:embed avsc/transaction_id.avsc
var TransactionIDSchema string

// TransactionID identifies the position in an upstream replication log that
// a message was produced from.
type TransactionID struct {
	*Attribute
}

// TransactionIDFields are the typed contents of a TransactionID.
type TransactionIDFields struct {
	ClusterName string
	LogFile     string
	LogPos      int
}

// NewTransactionID creates a transaction id attribute.
func NewTransactionID(id schema.ID, clusterName, logFile string, logPos int, opts ...payload.Option) (*TransactionID, error) {
	a, err := New(id, nil, payload.Data{
		"cluster_name": clusterName,
		"log_file":     logFile,
		"log_pos":      logPos,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &TransactionID{Attribute: a}, nil
}

// AsTransactionID views a generically reconstructed attribute as a
// TransactionID. The schema is not checked until Fields is called.
func AsTransactionID(a *Attribute) *TransactionID {
	return &TransactionID{Attribute: a}
}

// Fields decodes the attribute into its typed fields.
func (t *TransactionID) Fields(ctx context.Context) (TransactionIDFields, error) {
	data, err := t.PayloadData(ctx)
	if err != nil {
		return TransactionIDFields{}, err
	}

	var f TransactionIDFields
	var ok bool
	if f.ClusterName, ok = data["cluster_name"].(string); !ok {
		return f, fieldError("cluster_name", data["cluster_name"])
	}
	if f.LogFile, ok = data["log_file"].(string); !ok {
		return f, fieldError("log_file", data["log_file"])
	}
	switch pos := data["log_pos"].(type) {
	case int:
		f.LogPos = pos
	case int32:
		f.LogPos = int(pos)
	case int64:
		f.LogPos = int(pos)
	default:
		return f, fieldError("log_pos", pos)
	}
	return f, nil
}

func fieldError(name string, v any) error {
	return fmt.Errorf("%w: transaction id field %s has type %T", payload.ErrDecode, name, v)
}
