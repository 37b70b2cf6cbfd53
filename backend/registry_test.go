package backend

import (
	"errors"
	"testing"

	"github.com/gogpu/life/gpucore"
)

// fakeBackend is a minimal Backend for registry tests.
type fakeBackend struct {
	name    string
	initErr error
	inited  bool
}

func (b *fakeBackend) Name() string { return b.name }
func (b *fakeBackend) Init() error {
	if b.initErr != nil {
		return b.initErr
	}
	b.inited = true
	return nil
}
func (b *fakeBackend) Close()                      { b.inited = false }
func (b *fakeBackend) Adapter() gpucore.GPUAdapter { return nil }
func (b *fakeBackend) NewSurface(int, int) (gpucore.Surface, error) {
	return nil, ErrNotInitialized
}

// isolateRegistry swaps in an empty registry for the duration of a test.
func isolateRegistry(t *testing.T) {
	t.Helper()
	registryMu.Lock()
	saved := backends
	backends = make(map[string]Factory)
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		backends = saved
		registryMu.Unlock()
	})
}

func TestRegisterAndGet(t *testing.T) {
	isolateRegistry(t)

	Register("fake", func() Backend { return &fakeBackend{name: "fake"} })
	if !IsRegistered("fake") {
		t.Fatal("IsRegistered(fake) = false after Register")
	}
	b := Get("fake")
	if b == nil || b.Name() != "fake" {
		t.Fatalf("Get(fake) = %v", b)
	}
	if Get("missing") != nil {
		t.Error("Get(missing) should return nil")
	}

	Unregister("fake")
	if IsRegistered("fake") {
		t.Error("IsRegistered(fake) = true after Unregister")
	}
}

func TestAvailableSorted(t *testing.T) {
	isolateRegistry(t)

	Register("zeta", func() Backend { return &fakeBackend{name: "zeta"} })
	Register("alpha", func() Backend { return &fakeBackend{name: "alpha"} })

	got := Available()
	if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Errorf("Available() = %v, want [alpha zeta]", got)
	}
}

func TestDefaultPriority(t *testing.T) {
	isolateRegistry(t)

	if Default() != nil {
		t.Fatal("Default() on empty registry should be nil")
	}

	Register(BackendSoftware, func() Backend { return &fakeBackend{name: BackendSoftware} })
	if b := Default(); b == nil || b.Name() != BackendSoftware {
		t.Fatalf("Default() = %v, want software", b)
	}

	Register(BackendWGPU, func() Backend { return &fakeBackend{name: BackendWGPU} })
	if b := Default(); b == nil || b.Name() != BackendWGPU {
		t.Fatalf("Default() = %v, want wgpu", b)
	}
}

func TestDefaultFallbackToUnlisted(t *testing.T) {
	isolateRegistry(t)

	Register("custom", func() Backend { return &fakeBackend{name: "custom"} })
	if b := Default(); b == nil || b.Name() != "custom" {
		t.Fatalf("Default() = %v, want custom", b)
	}
}

func TestMustDefaultPanics(t *testing.T) {
	isolateRegistry(t)

	defer func() {
		if recover() == nil {
			t.Error("MustDefault() on empty registry did not panic")
		}
	}()
	MustDefault()
}

func TestInitDefaultFallsThrough(t *testing.T) {
	isolateRegistry(t)

	gpuErr := errors.New("no adapter")
	Register(BackendWGPU, func() Backend { return &fakeBackend{name: BackendWGPU, initErr: gpuErr} })
	Register(BackendSoftware, func() Backend { return &fakeBackend{name: BackendSoftware} })

	b, err := InitDefault()
	if err != nil {
		t.Fatalf("InitDefault() error = %v", err)
	}
	if b.Name() != BackendSoftware {
		t.Errorf("InitDefault() = %q, want software", b.Name())
	}
}

func TestInitDefaultAllFail(t *testing.T) {
	isolateRegistry(t)

	gpuErr := errors.New("no adapter")
	Register(BackendWGPU, func() Backend { return &fakeBackend{name: BackendWGPU, initErr: gpuErr} })

	if _, err := InitDefault(); !errors.Is(err, gpuErr) {
		t.Errorf("InitDefault() error = %v, want %v", err, gpuErr)
	}
}

func TestInitDefaultEmpty(t *testing.T) {
	isolateRegistry(t)

	if _, err := InitDefault(); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("InitDefault() error = %v, want ErrBackendNotAvailable", err)
	}
}
