// Package modules lists the built-in plugin modules.
package modules

import (
	"github.com/souissim/gridpath/internal/compose"
	"github.com/souissim/gridpath/internal/modules/carboncap"
	"github.com/souissim/gridpath/internal/modules/gennewbin"
	"github.com/souissim/gridpath/internal/modules/gennewlin"
	"github.com/souissim/gridpath/internal/modules/genspec"
	"github.com/souissim/gridpath/internal/modules/loadzones"
	"github.com/souissim/gridpath/internal/modules/objective"
	"github.com/souissim/gridpath/internal/modules/periods"
	"github.com/souissim/gridpath/internal/modules/project"
)

var builtin = []struct {
	name    string
	factory compose.Factory
}{
	{periods.Name, periods.New},
	{objective.Name, objective.New},
	{loadzones.Name, loadzones.New},
	{project.Name, project.New},
	{genspec.Name, genspec.New},
	{gennewlin.Name, gennewlin.New},
	{gennewbin.Name, gennewbin.New},
	{carboncap.Name, carboncap.New},
}

// Registry returns a registry holding every built-in module.
func Registry() *compose.Registry {
	r := compose.NewRegistry()
	for _, b := range builtin {
		r.MustRegister(b.name, b.factory)
	}
	return r
}

// Default returns the module names a scenario uses when it names none:
// every built-in module, in registration order.
func Default() []string {
	out := make([]string, len(builtin))
	for i, b := range builtin {
		out[i] = b.name
	}
	return out
}
