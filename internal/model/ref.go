package model

import (
    "encoding/json"
    "regexp"
)

// objectIDPattern matches the 24-character hexadecimal identifiers the
// remote API uses for every document. Credentials arriving from a QR
// scan are checked against it before any network call is made.
var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// IsObjectID reports whether s has the shape of a remote document id.
func IsObjectID(s string) bool {
    return objectIDPattern.MatchString(s)
}

// Ref is a foreign key as the remote API returns it: sometimes a bare id
// string, sometimes a populated sub-document. UnmarshalJSON normalizes
// both shapes at the boundary so join code only ever compares Ref.ID and
// never re-checks the shape ad hoc.
//
// Fields:
//  ID  – the referenced document's id; empty when the field was absent.
//  Doc – the populated sub-document, nil when the API sent a bare id.
type Ref[T any] struct {
    ID  string
    Doc *T
}

// refID is the minimal envelope used to pull the id out of a populated
// sub-document without knowing anything else about its type.
type refID struct {
    ID string `json:"_id"`
}

// UnmarshalJSON accepts null, a bare id string, or a populated document
// carrying an _id field.
func (r *Ref[T]) UnmarshalJSON(b []byte) error {
    if string(b) == "null" {
        *r = Ref[T]{}
        return nil
    }
    if len(b) > 0 && b[0] == '"' {
        var id string
        if err := json.Unmarshal(b, &id); err != nil {
            return err
        }
        *r = Ref[T]{ID: id}
        return nil
    }
    var env refID
    if err := json.Unmarshal(b, &env); err != nil {
        return err
    }
    doc := new(T)
    if err := json.Unmarshal(b, doc); err != nil {
        return err
    }
    *r = Ref[T]{ID: env.ID, Doc: doc}
    return nil
}

// MarshalJSON always emits the bare id form; requests never round-trip
// populated sub-documents back to the server.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
    if r.ID == "" {
        return []byte("null"), nil
    }
    return json.Marshal(r.ID)
}

// Matches reports whether the reference points at the given id. An empty
// id never matches, so unresolved references cannot pair with documents
// whose own id is missing.
func (r Ref[T]) Matches(id string) bool {
    return id != "" && r.ID == id
}
