package experiment

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ecosim/internal/components"
	"github.com/san-kum/ecosim/internal/model"
)

// Slot is one position of a Layout: either a fixed component or an
// extension point filled from the selection.
type Slot struct {
	Name  string
	Point bool
	New   Factory
}

func Fixed(name string, f Factory) Slot { return Slot{Name: name, New: f} }

func ExtensionPoint(name string) Slot { return Slot{Name: name, Point: true} }

// Layout is the composition order. It is part of the engine, not of the
// configuration, so equal selections always give equal structures.
type Layout []Slot

// Points returns the extension point names in layout order.
func (l Layout) Points() []string {
	var out []string
	for _, s := range l {
		if s.Point {
			out = append(out, s.Name)
		}
	}
	return out
}

// StandardLayout is the bundled integrated assessment composition.
func StandardLayout() Layout {
	return Layout{
		Fixed("baseline", func() model.Component { return components.NewBaseline() }),
		Fixed("emissions", func() model.Component { return components.NewEmissions() }),
		Fixed("temperature", func() model.Component { return components.NewTemperature() }),
		Fixed("sealevelrise", func() model.Component { return components.NewSeaLevelRise() }),
		ExtensionPoint(components.DamagePoint),
		Fixed("mitigation", func() model.Component { return components.NewMitigation() }),
		ExtensionPoint(components.EmissionTradePoint),
		ExtensionPoint(components.FinancialTransferPoint),
		ExtensionPoint(components.EffortSharingPoint),
		Fixed("economics", func() model.Component { return components.NewEconomics() }),
		ExtensionPoint(components.WelfarePoint),
		ExtensionPoint(components.ObjectivePoint),
	}
}

// Selection maps extension points to variant keys.
type Selection map[string]string

// Keys returns the selected points, sorted.
func (s Selection) Keys() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Composer registers components into one shared builder in order.
type Composer struct {
	b        *model.Builder
	included []string
}

func NewComposer() *Composer {
	return &Composer{b: model.NewBuilder()}
}

// Register runs c against the shared namespace. Name collisions are
// structural errors; relations keep registration order.
func (c *Composer) Register(comp model.Component) error {
	if err := c.b.Include(comp); err != nil {
		return err
	}
	c.included = append(c.included, comp.Name())
	return nil
}

// Compose resolves every slot of layout against reg before registering
// anything, so an unknown key leaves the namespace untouched.
func (c *Composer) Compose(reg *Registry, layout Layout, sel Selection) error {
	known := make(map[string]bool)
	resolved := make([]model.Component, 0, len(layout))
	for _, slot := range layout {
		if !slot.Point {
			resolved = append(resolved, slot.New())
			continue
		}
		known[slot.Name] = true
		key, ok := sel[slot.Name]
		if !ok {
			return model.Configf(slot.Name, "no variant selected")
		}
		comp, err := reg.Resolve(slot.Name, key)
		if err != nil {
			return err
		}
		resolved = append(resolved, comp)
	}
	for _, point := range sel.Keys() {
		if !known[point] {
			return model.Configf(point, "not an extension point of this layout")
		}
	}

	for _, comp := range resolved {
		if err := c.Register(comp); err != nil {
			return err
		}
	}
	logrus.WithField("components", c.included).Debug("composition registered")
	return nil
}

// Len is the number of declared variables and parameters.
func (c *Composer) Len() int { return c.b.Len() }

// Included lists the registered component names in order.
func (c *Composer) Included() []string { return append([]string(nil), c.included...) }

func (c *Composer) Freeze() (*model.Structure, error) { return c.b.Freeze() }

// Compose is the one-shot form: resolve, register and freeze.
func Compose(reg *Registry, layout Layout, sel Selection) (*model.Structure, error) {
	c := NewComposer()
	if err := c.Compose(reg, layout, sel); err != nil {
		return nil, err
	}
	return c.Freeze()
}
