package graph_test

import (
	"errors"
	"fmt"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ecosim/internal/graph"
	"github.com/san-kum/ecosim/internal/model"
)

func equationOf(target string, shape model.Shape, deps ...model.Ref) stub {
	return stub{name: target, build: func(b *model.Builder) []model.Relation {
		b.Variable(target, shape)
		return []model.Relation{model.Define(target, deps, one)}
	}}
}

func structuralKind(err error) model.StructuralKind {
	var se *model.StructuralError
	Expect(errors.As(err, &se)).To(BeTrue(), "expected StructuralError, got %v", err)
	return se.Kind
}

var _ = Describe("Build", func() {
	Context("with same-time cycles", func() {
		It("names both variables of a two-variable cycle", func() {
			st := freeze(
				stub{name: "pair", build: func(b *model.Builder) []model.Relation {
					b.Variable("a", model.Time)
					b.Variable("b", model.Time)
					return []model.Relation{
						model.Define("a", model.Deps(model.Now("b")), one),
						model.Define("b", model.Deps(model.Now("a")), one),
					}
				}},
			)
			_, err := graph.Build(st)
			Expect(err).To(HaveOccurred())
			Expect(structuralKind(err)).To(Equal(model.Cycle))

			var se *model.StructuralError
			errors.As(err, &se)
			Expect(se.Names).To(ContainElements("a", "b"))
			Expect(se.Names[0]).To(Equal(se.Names[len(se.Names)-1]))
			Expect(err.Error()).To(ContainSubstring("->"))
		})

		It("reports the full path of a longer cycle", func() {
			st := freeze(
				equationOf("x", model.Time, model.Now("z")),
				equationOf("y", model.Time, model.Now("x")),
				equationOf("z", model.Time, model.Now("y")),
			)
			_, err := graph.Build(st)
			var se *model.StructuralError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Names).To(HaveLen(4))
			Expect(se.Names).To(ContainElements("x", "y", "z"))
		})

		It("treats a same-time self reference as a one-node cycle", func() {
			st := freeze(equationOf("s", model.Time, model.Now("s")))
			_, err := graph.Build(st)
			Expect(structuralKind(err)).To(Equal(model.Cycle))
			Expect(err.Error()).To(ContainSubstring("s -> s"))
		})

		It("accepts lagged self references", func() {
			st := freeze(equationOf("s", model.Time, model.Prev("s")))
			g, err := graph.Build(st)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Stats().Lagged).To(Equal(1))
			Expect(g.Stats().SameTime).To(Equal(0))
		})

		It("accepts lagged mutual references", func() {
			st := freeze(
				equationOf("p", model.Time, model.Prev("q")),
				equationOf("q", model.Time, model.Now("p")),
			)
			_, err := graph.Build(st)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("with static variables", func() {
		It("rejects a lag on a static variable", func() {
			st := freeze(
				equationOf("k", model.Scalar, model.Prev("k")),
			)
			_, err := graph.Build(st)
			Expect(structuralKind(err)).To(Equal(model.StaticDependency))
		})

		It("rejects a static variable reading a time-varying one", func() {
			st := freeze(
				equationOf("flow", model.Time),
				equationOf("k", model.Region, model.Now("flow")),
			)
			_, err := graph.Build(st)
			Expect(structuralKind(err)).To(Equal(model.StaticDependency))
		})

		It("allows parameters and other static variables", func() {
			st := freeze(
				stub{name: "p", build: func(b *model.Builder) []model.Relation {
					b.Param("share", model.Region)
					return nil
				}},
				equationOf("base", model.Scalar),
				equationOf("k", model.Region, model.Now("share"), model.Now("base")),
			)
			g, err := graph.Build(st)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Order()).To(Equal([]string{"base", "k"}))
		})
	})

	Context("ordering", func() {
		It("breaks ties by registration order", func() {
			g1, err := graph.Build(freeze(equationOf("a", model.Time), equationOf("b", model.Time)))
			Expect(err).NotTo(HaveOccurred())
			Expect(g1.Order()).To(Equal([]string{"a", "b"}))

			g2, err := graph.Build(freeze(equationOf("b", model.Time), equationOf("a", model.Time)))
			Expect(err).NotTo(HaveOccurred())
			Expect(g2.Order()).To(Equal([]string{"b", "a"}))
		})

		It("puts dependencies before dependents regardless of registration", func() {
			g, err := graph.Build(freeze(
				equationOf("late", model.Time, model.Now("early")),
				equationOf("early", model.Time),
			))
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Order()).To(Equal([]string{"early", "late"}))
		})

		It("ranks controls by where they were declared", func() {
			g, err := graph.Build(freeze(
				equationOf("first", model.Time),
				stub{name: "ctl", build: func(b *model.Builder) []model.Relation {
					b.Control("u", model.Time)
					b.Variable("uses", model.Time)
					return []model.Relation{model.Define("uses", model.Deps(model.Now("u")), one)}
				}},
			))
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Order()).To(Equal([]string{"first", "u", "uses"}))
			n, ok := g.Node("u")
			Expect(ok).To(BeTrue())
			Expect(n.Kind).To(Equal(graph.Control))
		})

		It("keeps every same-time dependency ahead of its dependent for random compositions", func() {
			rng := rand.New(rand.NewSource(42))
			for trial := 0; trial < 50; trial++ {
				n := 3 + rng.Intn(12)
				picked := rng.Perm(20)[:n]
				components := make([]model.Component, 0, n)
				for _, i := range picked {
					var deps []model.Ref
					for _, j := range picked {
						switch {
						case j < i && rng.Float64() < 0.4:
							deps = append(deps, model.Now(fmt.Sprintf("v%d", j)))
						case rng.Float64() < 0.15:
							deps = append(deps, model.Prev(fmt.Sprintf("v%d", j)))
						}
					}
					components = append(components, equationOf(fmt.Sprintf("v%d", i), model.TimeRegion, deps...))
				}
				st := freeze(components...)
				g, err := graph.Build(st)
				Expect(err).NotTo(HaveOccurred())
				Expect(g.Order()).To(HaveLen(n))

				for _, name := range g.Order() {
					rank, _ := g.Rank(name)
					for _, ref := range g.DependenciesOf(name) {
						if ref.Lag > 0 {
							continue
						}
						dr, ok := g.Rank(ref.Name)
						Expect(ok).To(BeTrue())
						Expect(dr).To(BeNumerically("<", rank), "trial %d: %s before %s", trial, ref.Name, name)
					}
				}
			}
		})
	})

	Context("read-only views", func() {
		It("exposes nodes and edges without recomputation", func() {
			st := freeze(
				stub{name: "p", build: func(b *model.Builder) []model.Relation {
					b.Param("dt", model.Scalar)
					b.Variable("flow", model.Time)
					b.Variable("stock", model.Time)
					return []model.Relation{
						model.Define("flow", nil, one),
						model.Define("stock", model.Deps(model.Prev("stock"), model.Now("flow"), model.Now("dt")), one),
					}
				}},
			)
			g, err := graph.Build(st)
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Nodes()).To(HaveLen(3))
			Expect(g.Edges()).To(ConsistOf(
				graph.Edge{From: "stock", To: "stock", Lag: 1},
				graph.Edge{From: "flow", To: "stock"},
				graph.Edge{From: "dt", To: "stock"},
			))
			Expect(g.Dependents("flow")).To(Equal([]string{"stock"}))
			Expect(g.DependenciesOf("flow")).To(BeEmpty())
			Expect(g.Stats()).To(Equal(graph.Stats{Variables: 2, Inputs: 1, SameTime: 2, Lagged: 1}))
		})

		It("is unaffected by edits to values the structure returned", func() {
			st := freeze(
				stub{name: "p", build: func(b *model.Builder) []model.Relation {
					b.Variable("flow", model.Time)
					b.Variable("stock", model.Time)
					return []model.Relation{
						model.Define("flow", nil, one),
						model.Define("stock", model.Deps(model.Prev("stock"), model.Now("flow")), one),
					}
				}},
			)
			g, err := graph.Build(st)
			Expect(err).NotTo(HaveOccurred())

			st.Variables()[0].Control = true
			eq, _, _ := st.EquationFor("stock")
			eq.Deps[1] = model.Now("stock")
			for _, r := range st.Relations() {
				if e, ok := r.(*model.Equation); ok {
					e.Deps = append(e.Deps, model.Now("flow"))
				}
			}

			Expect(st.IsControl("flow")).To(BeFalse())
			Expect(g.DependenciesOf("stock")).To(Equal([]model.Ref{model.Prev("stock"), model.Now("flow")}))
			Expect(g.DependenciesOf("flow")).To(BeEmpty())
		})
	})
})
