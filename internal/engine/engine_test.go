package engine_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/meshsynth/internal/dynamo"
	"github.com/san-kum/meshsynth/internal/engine"
	"github.com/san-kum/meshsynth/internal/mesh"
)

const sr = 48000.0

// fourParticles is one row of four mobile particles between two anchors,
// plucked longitudinally at particle 2.
func fourParticles() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Grid.MobileColumns = 4
	cfg.Params.Pluck = engine.Pluck{Targets: []int{2}, Lane: 0, Impulse: 0.1}
	cfg.Params.Output.Left = 2
	cfg.Params.Output.Right = 3
	return cfg
}

func mustNew(cfg engine.Config) *engine.Engine {
	e, err := engine.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	return e
}

var _ = Describe("New", func() {
	DescribeTable("rejects invalid configuration",
		func(mutate func(*engine.Config), want error) {
			cfg := fourParticles()
			mutate(&cfg)
			e, err := engine.New(cfg)
			Expect(err).To(MatchError(want))
			Expect(e).To(BeNil())
		},
		Entry("no rows", func(c *engine.Config) { c.Grid.Rows = 0 }, dynamo.ErrInvalidTopology),
		Entry("no mobile columns", func(c *engine.Config) { c.Grid.MobileColumns = 0 }, dynamo.ErrInvalidTopology),
		Entry("zero mass", func(c *engine.Config) { c.Physics.Mass = 0 }, dynamo.ErrParameterBounds),
		Entry("zero stiffness", func(c *engine.Config) { c.Physics.Stiffness = 0 }, dynamo.ErrParameterBounds),
		Entry("zero half-life", func(c *engine.Config) { c.Params.HalfLife = 0 }, dynamo.ErrParameterBounds),
		Entry("glide of one", func(c *engine.Config) { c.Params.Glide = 1 }, dynamo.ErrParameterBounds),
		Entry("negative oversample", func(c *engine.Config) { c.Params.Oversample = -1 }, dynamo.ErrParameterBounds),
		Entry("pluck lane 4", func(c *engine.Config) { c.Params.Pluck.Lane = 4 }, dynamo.ErrParameterBounds),
		Entry("pluck on anchor", func(c *engine.Config) { c.Params.Pluck.Targets = []int{0} }, dynamo.ErrParameterBounds),
		Entry("output out of range", func(c *engine.Config) { c.Params.Output.Right = 6 }, dynamo.ErrParameterBounds),
		Entry("output on anchor", func(c *engine.Config) { c.Params.Output.Left = 5 }, dynamo.ErrParameterBounds),
		Entry("unknown output mode", func(c *engine.Config) { c.Params.Output.Mode = "pressure" }, dynamo.ErrParameterBounds),
		Entry("negative DC cutoff", func(c *engine.Config) { c.Params.Output.DCRejectHz = -10 }, dynamo.ErrParameterBounds),
	)

	It("builds the default string", func() {
		e := mustNew(engine.DefaultConfig())
		Expect(e.Topology().Particles()).To(Equal(44))
		Expect(e.Topology().MobileParticles()).To(Equal(42))
		Expect(e.Gate()).To(BeTrue())
		Expect(e.MaxSpeed()).To(BeZero())
	})
})

var _ = Describe("Update", func() {
	var e *engine.Engine

	BeforeEach(func() {
		e = mustNew(fourParticles())
	})

	It("stays at equilibrium when nothing excites it", func() {
		for i := 0; i < 1000; i++ {
			f := e.Update(sr)
			Expect(math.Abs(f.Left)).To(BeNumerically("<", 1e-9))
			Expect(math.Abs(f.Right)).To(BeNumerically("<", 1e-9))
		}
		Expect(e.MaxSpeed()).To(BeNumerically("<", 1e-9))
	})

	It("never lets total energy grow after a pluck", func() {
		cfg := fourParticles()
		cfg.Params.HalfLife = 0.2
		e = mustNew(cfg)
		e.Pluck()
		prev := e.Energy()
		first, last := 0.0, 0.0
		for i := 0; i < 10000; i++ {
			e.Update(sr)
			cur := e.Energy()
			Expect(cur).To(BeNumerically("<=", prev+1e-14), "update %d", i)
			prev = cur

			s := e.MaxSpeed()
			if i < 100 {
				first = math.Max(first, s)
			}
			if i >= 9900 {
				last = math.Max(last, s)
			}
		}
		Expect(last).To(BeNumerically("<", first))
	})

	It("keeps anchors fixed", func() {
		cfg := fourParticles()
		cfg.Grid.Rows = 2
		cfg.Physics.Gravity = dynamo.Vec4{0, -9.8, 0, 0}
		e = mustNew(cfg)
		e.Pluck()
		for i := 0; i < 500; i++ {
			e.Update(sr)
		}
		t := e.Topology()
		s := e.Snapshot()
		for i := 0; i < t.Particles(); i++ {
			if t.IsMobile(i) {
				continue
			}
			Expect(s[i].Vel).To(Equal(dynamo.Vec4{}))
			Expect(s[i].Pos).To(Equal(e.Rest(i)))
		}
	})

	It("moves particles ballistically without stiffness", func() {
		Expect(e.SetStiffness(0)).To(Succeed())
		e.Pluck()
		p := e.Params()
		dt := p.Tuning / sr
		factor := math.Pow(0.5, 1/(sr*p.HalfLife))

		e.Update(sr)

		got := e.Particle(2)
		Expect(got.Vel[0]).To(BeNumerically("~", 0.1*factor, 1e-15))
		Expect(got.Vel[1]).To(BeZero())
		Expect(got.Pos[0]).To(BeNumerically("~", e.Rest(2)[0]+0.1*dt, 1e-12))
		Expect(e.Particle(3).Vel).To(Equal(dynamo.Vec4{}))
	})

	It("decays faster once the gate is released", func() {
		held := mustNew(fourParticles())
		held.Pluck()
		e.Pluck()
		e.SetGate(false)
		for i := 0; i < 4800; i++ {
			held.Update(sr)
			e.Update(sr)
		}
		Expect(e.MaxSpeed()).To(BeNumerically("<", held.MaxSpeed()))
	})

	It("glides toward a new pitch", func() {
		Expect(e.Speed()).To(Equal(1.0))
		e.SetPitch(1)
		e.Update(sr)
		Expect(e.Speed()).To(BeNumerically("~", 1.02, 1e-12))
		for i := 0; i < 2000; i++ {
			e.Update(sr)
		}
		Expect(e.Speed()).To(BeNumerically("~", 2, 1e-9))
	})

	It("picks the sub-step count from MaxStep when oversample is automatic", func() {
		fixed := fourParticles()
		fixed.Params.Oversample = 4

		auto := fourParticles()
		auto.Params.Oversample = 0
		auto.Params.MaxStep = auto.Params.Tuning / sr / 3.5

		a, b := mustNew(fixed), mustNew(auto)
		a.Pluck()
		b.Pluck()
		for i := 0; i < 200; i++ {
			Expect(b.Update(sr)).To(Equal(a.Update(sr)))
		}
	})

	It("panics on a non-positive sample rate", func() {
		Expect(func() { e.Update(0) }).To(Panic())
		Expect(func() { e.Update(math.NaN()) }).To(Panic())
	})
})

var _ = Describe("Output", func() {
	It("reads velocity scaled by gain", func() {
		cfg := fourParticles()
		cfg.Params.Output.Gain = 2
		e := mustNew(cfg)
		e.Pluck()
		Expect(e.Output()).To(Equal(engine.StereoFrame{Left: 0.2, Right: 0}))
	})

	It("reads displacement from rest", func() {
		cfg := fourParticles()
		cfg.Params.Output.Mode = engine.OutputDisplacement
		e := mustNew(cfg)
		Expect(e.Output()).To(Equal(engine.StereoFrame{}))
		e.Pluck()
		e.Update(sr)
		f := e.Output()
		Expect(f.Left).To(BeNumerically(">", 0))
		Expect(f.Left).To(BeNumerically("~", e.Particle(2).Pos[0]-e.Rest(2)[0], 1e-18))
	})
})

var _ = Describe("DC reject", func() {
	// sagging is the default string hanging under gravity, read as vertical
	// displacement, so its settled shape sits far from the rest layout.
	sagging := func(cutoff float64) *engine.Engine {
		cfg := engine.DefaultConfig()
		cfg.Physics.Gravity = dynamo.Vec4{0, -9.8, 0, 0}
		cfg.Params.Output.Mode = engine.OutputDisplacement
		cfg.Params.Output.Lane = 1
		cfg.Params.Output.Gain = 1e3
		cfg.Params.Output.DCRejectHz = cutoff
		e := mustNew(cfg)
		Expect(e.Settle(sr, 0.05, 1)).To(Succeed())
		return e
	}

	It("outputs silence from a settled voice that was never plucked", func() {
		e := sagging(engine.DefaultDCRejectHz)
		Expect(e.Output().Peak()).To(BeNumerically(">", 1), "settled shape should be offset from rest")

		var f engine.StereoFrame
		for i := 0; i < 24000; i++ {
			f = e.Update(sr)
		}
		Expect(f.Peak()).To(BeNumerically("<", 1e-3))
	})

	It("passes the raw offset through when disabled", func() {
		e := sagging(0)
		f := e.Update(sr)
		Expect(f.Peak()).To(BeNumerically(">", 1))
		Expect(f).To(Equal(e.Output()))
	})

	It("snaps to the state restored by SetPreSettledState", func() {
		e := sagging(engine.DefaultDCRejectHz)
		e.CapturePreSettled()
		for i := 0; i < 100; i++ {
			e.Update(sr)
		}
		e.Initialize()
		e.Update(sr)
		Expect(e.SetPreSettledState()).To(Succeed())
		Expect(e.Update(sr)).To(Equal(engine.StereoFrame{}))
	})
})

var _ = Describe("Settle", func() {
	It("is deterministic", func() {
		a, b := mustNew(fourParticles()), mustNew(fourParticles())
		a.Pluck()
		b.Pluck()
		Expect(a.Settle(sr, 0.05, 0.1)).To(Succeed())
		Expect(b.Settle(sr, 0.05, 0.1)).To(Succeed())
		Expect(cmp.Diff(a.Snapshot(), b.Snapshot())).To(BeEmpty())
	})

	It("relaxes a plucked mesh", func() {
		e := mustNew(fourParticles())
		e.Pluck()
		Expect(e.Settle(sr, 0.01, 0.5)).To(Succeed())
		Expect(e.MaxSpeed()).To(BeNumerically("<", 1e-6))
	})

	DescribeTable("rejects bad arguments",
		func(rate, halfLife, duration float64) {
			e := mustNew(fourParticles())
			Expect(e.Settle(rate, halfLife, duration)).To(MatchError(dynamo.ErrParameterBounds))
		},
		Entry("zero rate", 0.0, 1.0, 1.0),
		Entry("infinite rate", math.Inf(1), 1.0, 1.0),
		Entry("zero half-life", sr, 0.0, 1.0),
		Entry("negative duration", sr, 1.0, -1.0),
		Entry("NaN duration", sr, 1.0, math.NaN()),
	)
})

var _ = Describe("pre-settled state", func() {
	It("fails when nothing has been captured", func() {
		e := mustNew(fourParticles())
		Expect(e.PreSettled()).To(BeNil())
		Expect(e.SetPreSettledState()).To(MatchError(dynamo.ErrNoPreSettledState))
	})

	It("rejects a state of the wrong shape", func() {
		e := mustNew(fourParticles())
		Expect(e.LoadPreSettled(make(mesh.State, 3))).To(MatchError(dynamo.ErrDimensionMismatch))
	})

	It("replays exactly like the settled engine", func() {
		settled := mustNew(fourParticles())
		settled.Pluck()
		Expect(settled.Settle(sr, 0.05, 0.1)).To(Succeed())
		settled.CapturePreSettled()

		loaded := mustNew(fourParticles())
		Expect(loaded.LoadPreSettled(settled.PreSettled())).To(Succeed())
		Expect(loaded.SetPreSettledState()).To(Succeed())

		for i := 0; i < 100; i++ {
			Expect(loaded.Update(sr)).To(Equal(settled.Update(sr)))
		}
		Expect(cmp.Diff(settled.Snapshot(), loaded.Snapshot())).To(BeEmpty())
	})

	It("is produced by Precompute", func() {
		s, err := engine.Precompute(fourParticles(), sr, 0.05, 0.01)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(HaveLen(6))
		Expect(s.IsValid()).To(BeTrue())
	})
})

var _ = Describe("runtime parameters", func() {
	var e *engine.Engine

	BeforeEach(func() {
		e = mustNew(fourParticles())
	})

	It("keeps the old parameters when SetParams fails", func() {
		p := e.Params()
		p.HalfLife = -1
		Expect(e.SetParams(p)).To(MatchError(dynamo.ErrParameterBounds))
		Expect(e.Params().HalfLife).To(Equal(engine.DefaultHalfLife))
	})

	It("does not alias the caller's pluck targets", func() {
		p := e.Params()
		Expect(e.SetParams(p)).To(Succeed())
		p.Pluck.Targets[0] = 0
		Expect(e.Params().Pluck.Targets).To(Equal([]int{2}))
	})

	It("rejects negative stiffness", func() {
		Expect(e.SetStiffness(-1)).To(MatchError(dynamo.ErrParameterBounds))
		Expect(e.Physics().Stiffness).To(Equal(89.0))
	})

	It("resets to rest on Initialize", func() {
		e.Pluck()
		e.SetGate(false)
		for i := 0; i < 10; i++ {
			e.Update(sr)
		}
		e.Initialize()
		Expect(e.Gate()).To(BeTrue())
		Expect(cmp.Diff(e.Topology().RestState(), e.Snapshot())).To(BeEmpty())
	})
})

func TestUpdateDoesNotAllocate(t *testing.T) {
	for _, oversample := range []int{1, 0} {
		cfg := engine.DefaultConfig()
		cfg.Params.Oversample = oversample
		e, err := engine.New(cfg)
		if err != nil {
			t.Fatal(err)
		}
		e.Pluck()
		allocs := testing.AllocsPerRun(200, func() {
			e.Update(sr)
		})
		if allocs != 0 {
			t.Errorf("oversample=%d: Update allocated %.1f times per call", oversample, allocs)
		}
	}
}
