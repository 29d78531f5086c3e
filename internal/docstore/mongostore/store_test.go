package mongostore

import (
	"testing"

	"github.com/angelmondragon/cartsync/internal/docstore"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFilterDocNormalizesDecimals(t *testing.T) {
	doc := filterDoc([]docstore.Filter{
		docstore.Eq("uid", "u1"),
		docstore.Eq("price", decimal.RequireFromString("4.25")),
	})
	if doc["uid"] != "u1" {
		t.Fatalf("unexpected uid filter %v", doc["uid"])
	}
	if doc["price"] != 4.25 {
		t.Fatalf("expected float price filter, got %#v", doc["price"])
	}
}

func TestToDocumentExtractsObjectID(t *testing.T) {
	oid := primitive.NewObjectID()
	doc := toDocument(bson.M{"_id": oid, "uid": "u1", "amount": int32(2)})
	if doc.ID != oid.Hex() {
		t.Fatalf("expected id %s got %s", oid.Hex(), doc.ID)
	}
	if _, ok := doc.Fields["_id"]; ok {
		t.Fatalf("_id should not leak into fields")
	}
	if n, ok := doc.Fields.Int("amount"); !ok || n != 2 {
		t.Fatalf("expected amount 2, got %d ok=%v", n, ok)
	}
}

func TestObjectIDsRejectsInvalidHex(t *testing.T) {
	if _, err := objectIDs([]string{primitive.NewObjectID().Hex(), "nope"}); err == nil {
		t.Fatalf("expected error for invalid id")
	}
}
