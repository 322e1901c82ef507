// SPDX-License-Identifier: MPL-2.0

package topology

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/gofrs/flock"

	"github.com/accton/as9817util/internal/testutil"
)

var testScratch = []string{"/tmp/device_threshold.json", "/tmp/device_threshold.json.lock"}

func TestScratchCreateIsWorldWritable(t *testing.T) {
	t.Parallel()

	s := testutil.NewSysfs(t)
	sf := NewScratchFiles(testScratch, s.Root)
	for _, st := range sf.CreateSteps() {
		if err := st.native(context.Background()); err != nil {
			t.Fatalf("%s: %v", st.Command, err)
		}
	}

	for _, path := range testScratch {
		info, err := os.Stat(s.Path(path))
		if err != nil {
			t.Fatalf("%s not created: %v", path, err)
		}
		if perm := info.Mode().Perm(); perm != 0o666 {
			t.Errorf("%s mode = %o, want 666", path, perm)
		}
	}
}

func TestScratchCreateKeepsContent(t *testing.T) {
	t.Parallel()

	s := testutil.NewSysfs(t)
	s.WriteFile(testScratch[0], `{"CPU":80}`)
	sf := NewScratchFiles(testScratch, s.Root)
	if err := sf.CreateSteps()[0].native(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := s.ReadFile(testScratch[0]); got != `{"CPU":80}` {
		t.Errorf("existing content clobbered: %q", got)
	}
}

func TestScratchCreateFailsWithoutDirectory(t *testing.T) {
	t.Parallel()

	sf := NewScratchFiles([]string{"/missing/dir/file"}, t.TempDir())
	err := sf.CreateSteps()[0].native(context.Background())
	var se *ScratchError
	if !errors.As(err, &se) || se.Op != "create" {
		t.Fatalf("error = %v, want a create ScratchError", err)
	}
}

func TestScratchRemove(t *testing.T) {
	t.Parallel()

	s := testutil.NewSysfs(t)
	s.WriteFile(testScratch[0], "")
	s.WriteFile(testScratch[1], "")

	if err := NewScratchFiles(testScratch, s.Root).Remove(false); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	for _, path := range testScratch {
		if s.Exists(path) {
			t.Errorf("%s still exists", path)
		}
	}
}

func TestScratchRemoveMissingIsNotAnError(t *testing.T) {
	t.Parallel()

	s := testutil.NewSysfs(t)
	if err := NewScratchFiles(testScratch, s.Root).Remove(false); err != nil {
		t.Fatalf("Remove() on missing files = %v", err)
	}
}

func TestScratchRemoveHonoursLock(t *testing.T) {
	t.Parallel()

	s := testutil.NewSysfs(t)
	s.WriteFile(testScratch[0], "")
	s.WriteFile(testScratch[1], "")

	// flock locks are per open file description, so a second handle in
	// the same process conflicts like another process would.
	holder := flock.New(s.Path(testScratch[1]))
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock() = %v, %v", locked, err)
	}
	defer func() { _ = holder.Unlock() }()

	sf := NewScratchFiles(testScratch, s.Root)
	if err := sf.Remove(false); !errors.Is(err, ErrScratchBusy) {
		t.Fatalf("Remove(false) error = %v, want ErrScratchBusy", err)
	}
	if !s.Exists(testScratch[0]) {
		t.Fatal("files removed despite the held lock")
	}

	if err := sf.Remove(true); err != nil {
		t.Fatalf("Remove(true) error = %v", err)
	}
	if s.Exists(testScratch[0]) || s.Exists(testScratch[1]) {
		t.Error("forced removal left files behind")
	}
}
