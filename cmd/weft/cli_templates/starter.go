package cli_templates

import "path/filepath"

func init() {
	Register("hello", &HelloStarter{})
	Register("counter", &CounterStarter{})
	Register("widgets", &WidgetsStarter{})
}

// HelloStarter is the smallest possible project: one component, mostly
// static markup.
type HelloStarter struct{}

func (s *HelloStarter) Name() string {
	return "hello"
}

func (s *HelloStarter) Description() string {
	return "A single mostly-static page"
}

func (s *HelloStarter) Generate(cfg *ProjectConfig) error {
	app := `import { defineComponent } from "weft";

export const App = defineComponent(() => <main>
	<h1>Hello, ` + cfg.Name + `</h1>
	<p>Edit <code>src/app.wx</code> and save to reload.</p>
</main>);
`
	return WriteFile(filepath.Join(cfg.Directory, "src/app.wx"), app)
}

// CounterStarter shows state, events, and a child component.
type CounterStarter struct{}

func (s *CounterStarter) Name() string {
	return "counter"
}

func (s *CounterStarter) Description() string {
	return "A counter with events and a reusable button"
}

func (s *CounterStarter) Generate(cfg *ProjectConfig) error {
	app := `import { defineComponent } from "weft";
import { signal } from "weft/runtime";
import { Button } from "./components/button.wx";

const count = signal(0);

export const App = defineComponent(() => <main>
	<h1>Counter</h1>
	<p>The count is <strong>{count.value}</strong>.</p>
	<Button label="Increment" @press={() => count.value++} />
	<Button label="Reset" disabled={count.value === 0} @press={() => (count.value = 0)} />
</main>);
`
	if err := WriteFile(filepath.Join(cfg.Directory, "src/app.wx"), app); err != nil {
		return err
	}

	button := `import { defineComponent } from "weft";

export const Button = defineComponent((props) => <button
	?disabled={props.disabled}
	@click={props.press}
>{props.label}</button>);
`
	return WriteFile(filepath.Join(cfg.Directory, "src/components/button.wx"), button)
}

// WidgetsStarter shows vector graphics and a custom element tag.
type WidgetsStarter struct{}

func (s *WidgetsStarter) Name() string {
	return "widgets"
}

func (s *WidgetsStarter) Description() string {
	return "An svg chart and a custom element"
}

func (s *WidgetsStarter) Generate(cfg *ProjectConfig) error {
	app := `import { defineComponent, defineElement } from "weft";

export const Gauge = defineElement("x-gauge");

export const Chart = defineComponent((props) => <svg viewBox="0 0 100 40" role="img">
	<polyline points={props.points} fill="none" stroke="currentColor" />
</svg>);

export const App = defineComponent(() => <main>
	<h1>Widgets</h1>
	<Chart points="0,40 20,10 40,25 60,5 80,30 100,12" />
	<Gauge value="64" />
</main>);
`
	return WriteFile(filepath.Join(cfg.Directory, "src/app.wx"), app)
}
