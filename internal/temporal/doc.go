// Package temporal resolves which planning periods a built asset is relevant in.
//
// A vintage is the period in which capacity is committed. Given a lifetime in
// years, a vintage is relevant in every period whose calendar span intersects
// the half-open operating window [vintage start, vintage start + lifetime).
// A period that starts exactly at expiry is not relevant.
//
// The package also builds the inverse mapping (period to relevant vintages)
// and the build-once groups: for each (asset, period) with at least one
// relevant vintage, the vintages whose active indicators must sum to at most
// one.
package temporal
