package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/roach88/restql/internal/ir"
)

// Libraries opened in every sandbox. io, os, debug, package and channel
// are never opened.
var openLibs = []struct {
	name string
	fn   lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
	{lua.CoroutineLibName, lua.OpenCoroutine},
}

// Base functions that reach the filesystem, the loader or interpreter
// internals. Each is replaced by a stub that raises a sandbox violation.
var blockedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
	"getfenv",
	"setfenv",
	"collectgarbage",
	"newproxy",
	"_printregs",
}

// Library tables replaced by guards. Any field access raises a sandbox
// violation naming the field, e.g. os.execute.
var blockedLibs = []string{
	lua.IoLibName,
	lua.OsLibName,
	lua.DebugLibName,
	lua.LoadLibName,
	lua.ChannelLibName,
}

const (
	errorTypeName       = "restql.error"
	nullTypeName        = "restql.null"
	transactionTypeName = "restql.transaction"
)

// Sandbox is one Lua interpreter bound to a Host. A Sandbox runs a single
// script and is not safe for concurrent use.
type Sandbox struct {
	L    *lua.LState
	host Host
	null *lua.LUserData

	// violation is set by the first blocked call. It survives pcall, so a
	// script cannot hide a violation by catching it.
	violation error
}

// New creates a sandbox whose transaction global forwards to host.
func New(host Host) *Sandbox {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:    true,
		CallStackSize:   256,
		RegistrySize:    1024 * 16,
		RegistryMaxSize: 1024 * 256,
	})
	s := &Sandbox{L: L, host: host}

	for _, lib := range openLibs {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range blockedGlobals {
		L.SetGlobal(name, L.NewFunction(s.blocked(name)))
	}
	for _, lib := range blockedLibs {
		L.SetGlobal(lib, s.guardTable(lib))
	}
	L.SetGlobal("print", L.NewFunction(scriptPrint))

	errMeta := L.NewTypeMetatable(errorTypeName)
	L.SetField(errMeta, "__tostring", L.NewFunction(errorToString))

	nullMeta := L.NewTypeMetatable(nullTypeName)
	L.SetField(nullMeta, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString("null"))
		return 1
	}))
	s.null = L.NewUserData()
	L.SetMetatable(s.null, nullMeta)
	L.SetGlobal("null", s.null)

	s.registerTransaction()
	return s
}

// Close releases the interpreter.
func (s *Sandbox) Close() {
	s.L.Close()
}

// Run evaluates src with input bound to the global "input" and returns the
// script's return value as a JSON-compatible Go value.
//
// Errors are classified as:
//   - SCRIPT_SANDBOX if the script touched a blocked capability, even if
//     it caught the resulting Lua error
//   - SCRIPT_RUNTIME for syntax errors, uncaught Lua errors, uncaught host
//     failures and cancellation
//   - TYPE_COERCION if the input or the return value cannot be converted
func (s *Sandbox) Run(ctx context.Context, src string, input any) (any, error) {
	s.L.SetContext(ctx)

	in, err := s.toLua(input, 0)
	if err != nil {
		return nil, ir.WrapError(ir.ErrCodeTypeCoercion, err, "script input")
	}
	s.L.SetGlobal("input", in)

	fn, err := s.L.LoadString(src)
	if err != nil {
		return nil, ir.WrapError(ir.ErrCodeScriptRuntime, err, "compile script")
	}

	s.L.Push(fn)
	callErr := s.L.PCall(0, 1, nil)

	if s.violation != nil {
		return nil, s.violation
	}
	if callErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ir.WrapError(ir.ErrCodeScriptRuntime, ctxErr, "script interrupted")
		}
		return nil, runtimeError(callErr)
	}

	ret := s.L.Get(-1)
	s.L.Pop(1)

	value, err := s.fromLua(ret, lenient, 0)
	if err != nil {
		return nil, ir.WrapError(ir.ErrCodeTypeCoercion, err, "script result")
	}
	return value, nil
}

// Run creates a sandbox for host, runs src once and closes the sandbox.
func Run(ctx context.Context, host Host, src string, input any) (any, error) {
	s := New(host)
	defer s.Close()
	return s.Run(ctx, src, input)
}

// runtimeError turns a failed PCall into a SCRIPT_RUNTIME error. Host
// failures raised as error userdata keep their cause.
func runtimeError(err error) error {
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		return ir.WrapError(ir.ErrCodeScriptRuntime, err, "script failed")
	}
	if ud, ok := apiErr.Object.(*lua.LUserData); ok {
		if cause, ok := ud.Value.(error); ok {
			return ir.WrapError(ir.ErrCodeScriptRuntime, cause, "uncaught error")
		}
	}
	return ir.NewError(ir.ErrCodeScriptRuntime, "%s", apiErr.Object.String())
}

// raise throws err into the script as an error userdata. tostring(err)
// yields its message.
func (s *Sandbox) raise(L *lua.LState, err error) {
	ud := L.NewUserData()
	ud.Value = err
	L.SetMetatable(ud, L.GetTypeMetatable(errorTypeName))
	L.Error(ud, 1)
}

func (s *Sandbox) violate(L *lua.LState, what string) {
	err := ir.NewError(ir.ErrCodeScriptSandbox, "%s is not available in scripts", what)
	if s.violation == nil {
		s.violation = err
	}
	s.raise(L, err)
}

func (s *Sandbox) blocked(name string) lua.LGFunction {
	return func(L *lua.LState) int {
		s.violate(L, name)
		return 0
	}
}

// guardTable returns an empty table whose reads and writes raise
// violations.
func (s *Sandbox) guardTable(lib string) *lua.LTable {
	L := s.L
	guard := L.NewTable()
	meta := L.NewTable()
	L.SetField(meta, "__index", L.NewFunction(func(L *lua.LState) int {
		s.violate(L, lib+"."+L.CheckString(2))
		return 0
	}))
	L.SetField(meta, "__newindex", L.NewFunction(func(L *lua.LState) int {
		s.violate(L, lib)
		return 0
	}))
	L.SetField(meta, "__metatable", lua.LString("locked"))
	L.SetMetatable(guard, meta)
	return guard
}

func scriptPrint(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	slog.Debug("script print", "message", strings.Join(parts, "\t"))
	return 0
}

func errorToString(L *lua.LState) int {
	ud := L.CheckUserData(1)
	if err, ok := ud.Value.(error); ok {
		L.Push(lua.LString(err.Error()))
	} else {
		L.Push(lua.LString(fmt.Sprint(ud.Value)))
	}
	return 1
}
