package detach_test

import (
	"errors"
	"os"
	"os/exec"
	"strconv"
	"testing"

	"settingsd/internal/detach"
	"settingsd/internal/logging"
)

type recordingSpawner struct {
	binary string
	args   []string
	env    []string
	calls  int
	err    error
}

func (s *recordingSpawner) Spawn(binary string, args, env []string) (int, error) {
	s.calls++
	s.binary, s.args, s.env = binary, args, env
	if s.err != nil {
		return 0, s.err
	}
	return 4242, nil
}

func TestMaybeDetachForeground(t *testing.T) {
	spawner := &recordingSpawner{}
	d := detach.New(detach.Options{Spawner: spawner, Executable: "/usr/bin/settingsd", Env: []string{}}, logging.NewNop())

	outcome, err := d.MaybeDetach(true)
	if err != nil || outcome != detach.Attached {
		t.Fatalf("expected Attached, got %s/%v", outcome, err)
	}
	if spawner.calls != 0 {
		t.Fatal("foreground must not spawn")
	}
}

func TestMaybeDetachSpawnsChildWithMarker(t *testing.T) {
	spawner := &recordingSpawner{}
	d := detach.New(detach.Options{
		Spawner:    spawner,
		Executable: "/usr/bin/settingsd",
		Args:       []string{"--sm-client-id", "abc"},
		Env:        []string{"HOME=/home/u", detach.EnvMarker + "=stale"},
	}, logging.NewNop())

	if d.Child() {
		t.Fatal("an unparsable marker must not mark the process as child")
	}
	outcome, err := d.MaybeDetach(false)
	if err != nil || outcome != detach.Spawned {
		t.Fatalf("expected Spawned, got %s/%v", outcome, err)
	}
	if spawner.binary != "/usr/bin/settingsd" || len(spawner.args) != 2 || spawner.args[1] != "abc" {
		t.Fatalf("unexpected spawn %s %v", spawner.binary, spawner.args)
	}
	markers := 0
	for _, kv := range spawner.env {
		if kv == detach.EnvMarker+"="+strconv.Itoa(os.Getpid()) {
			markers++
		} else if kv == detach.EnvMarker+"=stale" {
			t.Fatal("stale marker forwarded")
		}
	}
	if markers != 1 {
		t.Fatalf("expected exactly one marker, env=%v", spawner.env)
	}
}

func TestMaybeDetachInChild(t *testing.T) {
	spawner := &recordingSpawner{}
	d := detach.New(detach.Options{Spawner: spawner, Env: []string{detach.EnvMarker + "=77"}}, nil)

	if !d.Child() || d.ParentPID() != 77 {
		t.Fatalf("expected child of 77, got child=%v parent=%d", d.Child(), d.ParentPID())
	}
	outcome, err := d.MaybeDetach(false)
	if err != nil || outcome != detach.Detached {
		t.Fatalf("expected Detached, got %s/%v", outcome, err)
	}
	if spawner.calls != 0 {
		t.Fatal("child must not spawn again")
	}
}

func TestMaybeDetachSpawnFailureStaysAttached(t *testing.T) {
	spawner := &recordingSpawner{err: errors.New("fork bomb guard")}
	d := detach.New(detach.Options{Spawner: spawner, Executable: "/usr/bin/settingsd", Env: []string{}}, nil)

	outcome, err := d.MaybeDetach(false)
	if err == nil || outcome != detach.Attached {
		t.Fatalf("expected Attached with error, got %s/%v", outcome, err)
	}
}

func TestExecSpawnerStartsProcess(t *testing.T) {
	binary, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	pid, err := detach.ExecSpawner{}.Spawn(binary, nil, os.Environ())
	if err != nil {
		t.Fatalf("Spawn returned error: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("unexpected pid %d", pid)
	}
}
