package main

import (
	"log"
	"os"
	"time"

	"cascade"
)

const defaultsPath = "defaults.toml"

// MachineConfig is the struct view of one machine's resolved settings.
type MachineConfig struct {
	Display struct {
		Color      string `config:"color"`
		Resolution string `config:"resolution"`
	} `config:"display"`
	Network struct {
		Timeout time.Duration `config:"timeout"`
	} `config:"network"`
}

func main() {
	defer os.Remove(defaultsPath)

	// PART 1: a defaults profile backed by a TOML file.
	log.Println("--- defaults profile ---")

	defaults, err := cascade.NewRoot("defaults", cascade.NewFileStrategy(defaultsPath))
	if err != nil {
		log.Fatalf("create defaults: %v", err)
	}
	mustSet(defaults, "display/color", "blue")
	mustSet(defaults, "display/resolution", "1920x1080")
	mustSet(defaults, "network/timeout", 30*time.Second)

	if err := defaults.Save(cascade.SaveDefault); err != nil {
		log.Fatalf("save defaults: %v", err)
	}
	log.Printf("defaults written to %s", defaultsPath)

	// PART 2: machine profiles deriving from the defaults. Items without an
	// own value resolve through the inheritance chain.
	log.Println("--- machine profiles ---")

	fancy := cascade.NewDerived(defaults, nil)
	mustSet(fancy, "display/color", "gold")

	other := cascade.NewDerived(defaults, nil)
	if _, err := cascade.SetItem[string](other, "display/color"); err != nil {
		log.Fatalf("declare item: %v", err)
	}

	logColor := func(name string, n *cascade.Node) {
		color, err := cascade.GetValue[string](n, "display/color")
		if err != nil {
			log.Fatalf("get color: %v", err)
		}
		log.Printf("%s color: %s", name, color)
	}
	logColor("fancy", fancy) // gold, its own value
	logColor("other", other) // blue, inherited

	// PART 3: live propagation. Changing the default reaches every machine
	// still tracking it, synchronously.
	log.Println("--- live propagation ---")

	watch := other.Watch()
	mustSet(defaults, "display/color", "green")
	log.Printf("changed path: %s", <-watch)
	other.Unwatch(watch)

	logColor("fancy", fancy) // still gold
	logColor("other", other) // green now

	// PART 4: struct scanning of the resolved cascade.
	log.Println("--- struct scanning ---")

	var cfg MachineConfig
	if err := other.Scan(&cfg); err != nil {
		log.Fatalf("scan: %v", err)
	}
	log.Printf("other resolves to %+v", cfg)
}

func mustSet[T any](n *cascade.Node, path string, v T) {
	if _, err := cascade.SetValue(n, path, v); err != nil {
		log.Fatalf("set %s: %v", path, err)
	}
}
