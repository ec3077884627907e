package config

import (
	"errors"
	"testing"
	"time"
)

func TestValidateAcceptsValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Global.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ListenPort 超出范围应当报错")
	}
}

func TestValidateRejectsUnknownCompiler(t *testing.T) {
	testCases := []struct {
		name      string
		compiler  string
		shouldErr bool
	}{
		{"raw ok", "raw", false},
		{"template ok", "template", false},
		{"yaml ok", "YAML", false},
		{"missing", "", true},
		{"unsupported", "sass", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Sites[0].Compiler = tc.compiler
			err := cfg.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error for compiler %q", tc.compiler)
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("unexpected error for compiler %q: %v", tc.compiler, err)
			}
		})
	}
}

func TestValidateRejectsBadTransform(t *testing.T) {
	cfg := validConfig()
	cfg.Sites[0].FileNameTransform = "reverse"
	err := cfg.Validate()
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "Site[assets].FileNameTransform" {
		t.Fatalf("期望 FileNameTransform 字段错误，得到 %v", err)
	}
}

func TestValidateRejectsDuplicates(t *testing.T) {
	cfg := validConfig()
	cfg.Sites = append(cfg.Sites, cfg.Sites[0])
	if err := cfg.Validate(); err == nil {
		t.Fatalf("重复站点名应报错")
	}

	cfg = validConfig()
	dup := cfg.Sites[0]
	dup.Name = "assets-alt"
	dup.Domain = "ASSETS.local"
	cfg.Sites = append(cfg.Sites, dup)
	if err := cfg.Validate(); err == nil {
		t.Fatalf("重复域名应报错")
	}
}

func TestValidateRequiresRootAndDomain(t *testing.T) {
	cfg := validConfig()
	cfg.Sites[0].Root = " "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Root 为空应报错")
	}

	cfg = validConfig()
	cfg.Sites[0].Domain = "http://assets.local"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Domain 含协议头应报错")
	}
}

func TestValidateRequiresSites(t *testing.T) {
	cfg := validConfig()
	cfg.Sites = nil
	if err := cfg.Validate(); err == nil {
		t.Fatalf("没有站点时应报错")
	}
}

func TestCompilerSummary(t *testing.T) {
	got := CompilerSummary(validConfig().Sites)
	if len(got) != 1 || got[0] != "assets:raw" {
		t.Fatalf("unexpected summary: %v", got)
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			ListenPort:   5000,
			LogLevel:     "info",
			ReadTimeout:  Duration(time.Second),
			WriteTimeout: Duration(time.Second),
		},
		Sites: []SiteConfig{
			{
				Name:              "assets",
				Domain:            "assets.local",
				Root:              "/srv/assets",
				Compiler:          "raw",
				FileNameTransform: "identity",
			},
		},
	}
}
