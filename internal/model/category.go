package model

// Category is a destination grouping owned by one agency; many rides
// reference one category.
//
// Fields:
//  ID          – document id.
//  From, To    – the route this category covers.
//  AverageTime – typical trip duration as the server formats it.
//  Description – free-form description shown to staff.
//  Agency      – owning agency, id or populated document.
type Category struct {
    ID          string      `json:"_id"`
    From        string      `json:"from"`
    To          string      `json:"to"`
    AverageTime string      `json:"averageTime"`
    Description string      `json:"description"`
    Agency      Ref[Agency] `json:"agencyId"`
}
