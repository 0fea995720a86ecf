package graph_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ecosim/internal/model"
)

func TestGraph(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Graph Suite")
}

type stub struct {
	name  string
	build func(b *model.Builder) []model.Relation
}

func (s stub) Name() string { return s.name }

func (s stub) Build(b *model.Builder) ([]model.Relation, error) { return s.build(b), nil }

func one(model.Scope) float64 { return 1 }

func freeze(components ...model.Component) *model.Structure {
	b := model.NewBuilder()
	for _, c := range components {
		Expect(b.Include(c)).To(Succeed())
	}
	st, err := b.Freeze()
	Expect(err).NotTo(HaveOccurred())
	return st
}
