// Package store holds the client-side view of documents and customers as
// immutable snapshots. Every mutating method returns a new *Store and
// leaves the receiver untouched, so a snapshot handed to a renderer never
// changes underneath it.
package store

import (
	"sort"

	"github.com/odyssey-erp/billingdesk/internal/billing"
)

// Key identifies a persisted document.
type Key struct {
	Kind billing.Kind
	ID   int64
}

// KeyOf returns the key of a persisted document.
func KeyOf(doc billing.Document) Key {
	return Key{Kind: doc.Kind, ID: doc.ID}
}

// Store is an immutable snapshot. The zero value is not usable; start from New.
type Store struct {
	version   uint64
	docs      map[Key]billing.Document
	customers map[int64]billing.Customer
}

// New returns an empty snapshot.
func New() *Store {
	return &Store{
		docs:      map[Key]billing.Document{},
		customers: map[int64]billing.Customer{},
	}
}

// Version increases with every derived snapshot.
func (s *Store) Version() uint64 { return s.version }

func (s *Store) derive() *Store {
	next := &Store{
		version:   s.version + 1,
		docs:      make(map[Key]billing.Document, len(s.docs)),
		customers: make(map[int64]billing.Customer, len(s.customers)),
	}
	for k, v := range s.docs {
		next.docs[k] = v
	}
	for k, v := range s.customers {
		next.customers[k] = v
	}
	return next
}

// ============================================================================
// DOCUMENTS
// ============================================================================

// Document returns a copy of the stored document.
func (s *Store) Document(kind billing.Kind, id int64) (billing.Document, bool) {
	doc, ok := s.docs[Key{kind, id}]
	if !ok {
		return billing.Document{}, false
	}
	return doc.Clone(), true
}

// Documents lists documents of kind, newest first.
func (s *Store) Documents(kind billing.Kind) []billing.Document {
	out := make([]billing.Document, 0)
	for k, doc := range s.docs {
		if k.Kind == kind {
			out = append(out, doc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Put inserts or replaces persisted documents.
func (s *Store) Put(docs ...billing.Document) *Store {
	next := s.derive()
	for _, doc := range docs {
		next.docs[KeyOf(doc)] = doc.Clone()
	}
	return next
}

// Replace swaps every document of kind for docs, as after a full reload.
func (s *Store) Replace(kind billing.Kind, docs []billing.Document) *Store {
	next := s.derive()
	for k := range next.docs {
		if k.Kind == kind {
			delete(next.docs, k)
		}
	}
	for _, doc := range docs {
		doc.Kind = kind
		next.docs[KeyOf(doc)] = doc.Clone()
	}
	return next
}

// Remove drops a persisted document. Removing a missing key still yields a
// new snapshot.
func (s *Store) Remove(kind billing.Kind, id int64) *Store {
	next := s.derive()
	delete(next.docs, Key{kind, id})
	return next
}

// ============================================================================
// CUSTOMERS
// ============================================================================

// Customer returns a stored customer.
func (s *Store) Customer(id int64) (billing.Customer, bool) {
	c, ok := s.customers[id]
	return c, ok
}

// Customers lists customers ordered by display name.
func (s *Store) Customers() []billing.Customer {
	out := make([]billing.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if a, b := out[i].DisplayName(), out[j].DisplayName(); a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PutCustomers inserts or replaces customers.
func (s *Store) PutCustomers(customers ...billing.Customer) *Store {
	next := s.derive()
	for _, c := range customers {
		next.customers[c.ID] = c
	}
	return next
}

// RemoveCustomer drops a customer.
func (s *Store) RemoveCustomer(id int64) *Store {
	next := s.derive()
	delete(next.customers, id)
	return next
}

// ReplaceCustomers swaps the whole customer list.
func (s *Store) ReplaceCustomers(customers []billing.Customer) *Store {
	next := s.derive()
	next.customers = make(map[int64]billing.Customer, len(customers))
	for _, c := range customers {
		next.customers[c.ID] = c
	}
	return next
}
