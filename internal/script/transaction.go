package script

import (
	"context"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/roach88/restql/internal/ir"
)

// Host services the script-visible transaction object. Each method is a
// blocking round trip; the script is suspended until it returns.
type Host interface {
	Get(ctx context.Context, table, id string) (ir.OptionalJSONMap, error)
	Create(ctx context.Context, table string, data ir.JSONMap) (ir.OptionalJSONMap, error)
	Rollback(ctx context.Context, value any) error
}

// registerTransaction installs the global "transaction" object:
//
//	local row = transaction:get("accounts", id)      -- row or nil
//	local new = transaction:create("accounts", {...}) -- inserted row
//	transaction:rollback(value)                      -- value is returned
func (s *Sandbox) registerTransaction() {
	L := s.L
	meta := L.NewTypeMetatable(transactionTypeName)
	L.SetField(meta, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get":      s.txGet,
		"create":   s.txCreate,
		"rollback": s.txRollback,
	}))
	L.SetField(meta, "__metatable", lua.LString("locked"))

	tx := L.NewUserData()
	L.SetMetatable(tx, meta)
	L.SetGlobal("transaction", tx)
}

func checkTransaction(L *lua.LState) {
	ud := L.CheckUserData(1)
	if mt, ok := ud.Metatable.(*lua.LTable); !ok || mt != L.GetTypeMetatable(transactionTypeName) {
		L.ArgError(1, "transaction expected (use transaction:method(...))")
	}
}

func (s *Sandbox) txGet(L *lua.LState) int {
	checkTransaction(L)
	table := L.CheckString(2)

	var id string
	switch v := L.CheckAny(3).(type) {
	case lua.LString:
		id = string(v)
	case lua.LNumber:
		n, err := numberFromLua(v)
		if err != nil {
			L.ArgError(3, err.Error())
		}
		switch n := n.(type) {
		case int64:
			id = strconv.FormatInt(n, 10)
		default:
			id = v.String()
		}
	default:
		L.ArgError(3, "id must be a string or number")
	}

	row, err := s.host.Get(L.Context(), table, id)
	if err != nil {
		s.raise(L, err)
	}
	if row == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(s.rowToLua(row))
	return 1
}

func (s *Sandbox) txCreate(L *lua.LState) int {
	checkTransaction(L)
	table := L.CheckString(2)

	data, err := s.toJSONMap(L.CheckTable(3))
	if err != nil {
		s.raise(L, err)
	}

	row, err := s.host.Create(L.Context(), table, data)
	if err != nil {
		s.raise(L, err)
	}
	L.Push(s.rowToLua(row))
	return 1
}

func (s *Sandbox) txRollback(L *lua.LState) int {
	checkTransaction(L)

	value, err := s.fromLua(L.Get(2), strict, 0)
	if err != nil {
		s.raise(L, ir.WrapError(ir.ErrCodeTypeCoercion, err, "rollback value"))
	}

	if err := s.host.Rollback(L.Context(), value); err != nil {
		s.raise(L, err)
	}
	return 0
}
