package compiler

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/any-hub/render-hub/internal/render"
)

// Env 是编译器构建时可用的运行环境。
type Env struct {
	Fs afero.Fs
}

// Definition 记录一个编译器的静态信息与构造函数。
type Definition struct {
	Key         string
	Description string
	// ContentType 为空时由 Invoker 回退到 text/html。
	ContentType string
	// DetectContentType 为 true 时按源文件扩展名推断 Content-Type。
	DetectContentType bool

	New func(Env) render.Compiler
}

var globalRegistry = newRegistry()

type registry struct {
	mu          sync.RWMutex
	definitions map[string]Definition
}

func newRegistry() *registry {
	return &registry{definitions: make(map[string]Definition)}
}

// Register 将编译器加入全局注册表，重复键会返回错误。
func Register(def Definition) error {
	return globalRegistry.register(def)
}

// MustRegister 在注册失败时 panic，适合 init() 中调用。
func MustRegister(def Definition) {
	if err := Register(def); err != nil {
		panic(err)
	}
}

// Resolve 返回指定键的编译器定义。
func Resolve(key string) (Definition, bool) {
	return globalRegistry.resolve(key)
}

// List 返回按键排序的编译器定义。
func List() []Definition {
	return globalRegistry.list()
}

// Keys 返回所有已注册编译器的键。
func Keys() []string {
	items := List()
	result := make([]string, len(items))
	for i, def := range items {
		result[i] = def.Key
	}
	return result
}

// ContentTypeFor 返回该编译器为 file 产出内容的 Content-Type，可能为空。
func (d Definition) ContentTypeFor(file string) string {
	if d.ContentType != "" {
		return d.ContentType
	}
	if d.DetectContentType {
		return ContentTypeFor(file)
	}
	return ""
}

// Build 按键实例化编译器。
func Build(key string, env Env) (render.Compiler, Definition, error) {
	def, ok := Resolve(key)
	if !ok {
		return nil, Definition{}, fmt.Errorf("compiler %s is not registered", key)
	}
	if env.Fs == nil {
		env.Fs = afero.NewOsFs()
	}
	return def.New(env), def, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (r *registry) register(def Definition) error {
	key := normalizeKey(def.Key)
	if key == "" {
		return fmt.Errorf("compiler key is required")
	}
	if def.New == nil {
		return fmt.Errorf("compiler %s: constructor is required", key)
	}
	def.Key = key

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[key]; exists {
		return fmt.Errorf("compiler %s already registered", key)
	}
	r.definitions[key] = def
	return nil
}

func (r *registry) resolve(key string) (Definition, bool) {
	normalized := normalizeKey(key)
	if normalized == "" {
		return Definition{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[normalized]
	return def, ok
}

func (r *registry) list() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.definitions) == 0 {
		return nil
	}

	keys := make([]string, 0, len(r.definitions))
	for key := range r.definitions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Definition, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.definitions[key])
	}
	return result
}
