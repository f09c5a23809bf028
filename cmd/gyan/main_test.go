package main

import "testing"

func TestMainWiring(t *testing.T) {
	origLoadEnv := loadEnv
	origSetVersion := setVersionInfo
	origExecute := executeCmd
	t.Cleanup(func() {
		loadEnv = origLoadEnv
		setVersionInfo = origSetVersion
		executeCmd = origExecute
	})

	var order []string
	loadEnv = func() error {
		order = append(order, "env")
		return nil
	}
	setVersionInfo = func(v, c, d string) {
		order = append(order, "version")
		if v == "" || c == "" || d == "" {
			t.Fatalf("expected version info to be set")
		}
	}
	executeCmd = func() {
		order = append(order, "execute")
	}

	main()

	want := []string{"env", "version", "execute"}
	if len(order) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, order)
		}
	}
}
