package displaydate_test

import (
	"os"
	"slices"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// composeFile はdocker-compose.ymlのうち検証に使う項目。
type composeFile struct {
	Services map[string]struct {
		Image     string         `yaml:"image"`
		Build     string         `yaml:"build"`
		Command   []string       `yaml:"command"`
		Networks  []string       `yaml:"networks"`
		DependsOn map[string]any `yaml:"depends_on"`
	} `yaml:"services"`
	Networks map[string]struct {
		Internal bool   `yaml:"internal"`
		Driver   string `yaml:"driver"`
	} `yaml:"networks"`
}

func loadCompose(t *testing.T) composeFile {
	t.Helper()
	data, err := os.ReadFile("docker-compose.yml")
	if err != nil {
		t.Fatalf("failed to read docker-compose.yml: %v", err)
	}
	var c composeFile
	if err := yaml.Unmarshal(data, &c); err != nil {
		t.Fatalf("docker-compose.yml is not valid YAML: %v", err)
	}
	return c
}

func readDockerfile(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("Dockerfile")
	if err != nil {
		t.Fatalf("failed to read Dockerfile: %v", err)
	}
	return string(data)
}

func TestDockerfile(t *testing.T) {
	content := readDockerfile(t)

	var stages []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); strings.HasPrefix(line, "FROM ") {
			stages = append(stages, line)
		}
	}
	if len(stages) < 2 || !strings.HasPrefix(stages[0], "FROM golang:") {
		t.Fatalf("want a golang build stage followed by a runtime stage, got %v", stages)
	}
	if last := stages[len(stages)-1]; !strings.Contains(last, "distroless") {
		t.Errorf("runtime stage should be distroless, got %s", last)
	}

	for _, want := range []string{
		"-o /out/displaydate ./cmd/displaydate",
		`ENTRYPOINT ["/usr/local/bin/displaydate"]`,
		`CMD ["serve"]`,
		`"healthcheck"`,
		"USER nonroot",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Dockerfile should contain %s", want)
		}
	}
}

func TestDockerCompose_ServiceCommands(t *testing.T) {
	c := loadCompose(t)

	tests := []struct {
		service string
		command string
	}{
		{"migrate", "migrate"},
		{"api", "serve"},
		{"worker", "worker"},
	}
	for _, tt := range tests {
		svc, ok := c.Services[tt.service]
		if !ok {
			t.Errorf("service %q is missing", tt.service)
			continue
		}
		if !slices.Equal(svc.Command, []string{tt.command}) {
			t.Errorf("%s command = %v, want [%s]", tt.service, svc.Command, tt.command)
		}
		if tt.service != "migrate" {
			if _, ok := svc.DependsOn["migrate"]; !ok {
				t.Errorf("%s should wait for migrate", tt.service)
			}
		}
	}

	if db := c.Services["db"]; !strings.HasPrefix(db.Image, "postgres:") {
		t.Errorf("db image = %q, want postgres", db.Image)
	}
}

func TestDockerCompose_Networks(t *testing.T) {
	c := loadCompose(t)

	if !c.Networks["backend"].Internal {
		t.Error("backend network should be internal")
	}
	if _, ok := c.Networks["external"]; !ok {
		t.Fatal("external network is missing")
	}

	// ゲートウェイAPIを呼ぶapiとworkerだけが外に出られる。
	egress := map[string]bool{"api": true, "worker": true}
	for name, svc := range c.Services {
		if got := slices.Contains(svc.Networks, "external"); got != egress[name] {
			t.Errorf("%s on external network = %v, want %v", name, got, egress[name])
		}
		if !slices.Contains(svc.Networks, "backend") {
			t.Errorf("%s should be on backend network", name)
		}
	}
}
