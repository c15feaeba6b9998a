// Package irpack reads and writes modules in a compact msgpack container.
// The format flattens the object graph: variables and blocks are referenced
// by index, instructions by a kind tag plus sub-operator.
package irpack

import (
	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
	"tlog.app/go/errors"

	"anvil/internal/ir"
)

// FormatVersion guards against stale artifacts.
const FormatVersion = 1

const (
	opKindVar uint8 = iota
	opKindConstI32
	opKindConstI64
	opKindReloc
	opKindUndef
)

const (
	instArith uint8 = iota
	instIcmp
	instCast
	instAssign
	instLoad
	instStore
	instBr
	instCall
	instIntrinsic
	instAlloca
	instRet
	instSelect
	instSwitch
	instUnreachable
)

type fileOperand struct {
	Kind uint8  `msgpack:"k"`
	Ty   uint8  `msgpack:"t,omitempty"`
	Var  int32  `msgpack:"v,omitempty"`
	I32  int32  `msgpack:"i,omitempty"`
	I64  int64  `msgpack:"l,omitempty"`
	Sym  string `msgpack:"s,omitempty"`
	Off  int32  `msgpack:"o,omitempty"`
}

type fileCase struct {
	Value  int64 `msgpack:"v"`
	Target int32 `msgpack:"b"`
}

type fileInstr struct {
	Kind    uint8         `msgpack:"k"`
	Op      uint8         `msgpack:"op,omitempty"`
	Dest    int32         `msgpack:"d"`
	Srcs    []fileOperand `msgpack:"s,omitempty"`
	Targets []int32       `msgpack:"b,omitempty"`
	Cases   []fileCase    `msgpack:"c,omitempty"`
	Align   uint32        `msgpack:"a,omitempty"`
	Effects bool          `msgpack:"e,omitempty"`
}

type filePhi struct {
	Dest  int32         `msgpack:"d"`
	Srcs  []fileOperand `msgpack:"s"`
	Preds []int32       `msgpack:"p"`
}

type fileBlock struct {
	Name   string      `msgpack:"n"`
	Phis   []filePhi   `msgpack:"p,omitempty"`
	Instrs []fileInstr `msgpack:"i"`
}

type fileVar struct {
	Name string `msgpack:"n,omitempty"`
	Ty   uint8  `msgpack:"t"`
}

type fileFunc struct {
	Name   string      `msgpack:"n"`
	Ret    uint8       `msgpack:"r"`
	Vars   []fileVar   `msgpack:"v"`
	Args   []int32     `msgpack:"a,omitempty"`
	Blocks []fileBlock `msgpack:"b"`
}

type fileModule struct {
	Version int        `msgpack:"ver"`
	Name    string     `msgpack:"n"`
	Funcs   []fileFunc `msgpack:"f"`
}

// EncodeModule serializes m.
func EncodeModule(m *ir.Module) ([]byte, error) {
	fm := fileModule{Version: FormatVersion, Name: m.Name}
	for _, f := range m.Funcs {
		ff, err := encodeFunc(f)
		if err != nil {
			return nil, errors.Wrap(err, "function %s", f.Name)
		}
		fm.Funcs = append(fm.Funcs, ff)
	}
	return msgpack.Marshal(&fm)
}

// DecodeModule rebuilds a module from its serialized form.
func DecodeModule(data []byte) (*ir.Module, error) {
	var fm fileModule
	if err := msgpack.Unmarshal(data, &fm); err != nil {
		return nil, errors.Wrap(err, "unmarshal module")
	}
	if fm.Version != FormatVersion {
		return nil, errors.New("format version %d, want %d", fm.Version, FormatVersion)
	}
	m := &ir.Module{Name: fm.Name}
	for i := range fm.Funcs {
		f, err := decodeFunc(&fm.Funcs[i])
		if err != nil {
			return nil, errors.Wrap(err, "function %s", fm.Funcs[i].Name)
		}
		m.Funcs = append(m.Funcs, f)
	}
	return m, nil
}

func encodeFunc(f *ir.Func) (fileFunc, error) {
	ff := fileFunc{Name: f.Name, Ret: uint8(f.ReturnType)}

	// Only root variables are declared; i64 halves are recreated
	// structurally on decode, in the same creation order, so Nums line up.
	child := map[int32]bool{}
	for _, v := range f.Vars {
		if v.Lo != nil {
			child[v.Lo.Num] = true
			child[v.Hi.Num] = true
		}
	}
	for _, v := range f.Vars {
		if child[v.Num] {
			continue
		}
		ff.Vars = append(ff.Vars, fileVar{Name: v.Name, Ty: uint8(v.Ty)})
	}
	for _, a := range f.Args {
		ff.Args = append(ff.Args, a.Num)
	}
	for _, b := range f.Blocks {
		fb := fileBlock{Name: b.Name}
		for _, phi := range b.Phis {
			fp := filePhi{Dest: phi.Dest().Num}
			for _, src := range phi.Srcs() {
				op, err := encodeOperand(src)
				if err != nil {
					return ff, err
				}
				fp.Srcs = append(fp.Srcs, op)
			}
			for _, pred := range phi.Preds {
				fp.Preds = append(fp.Preds, pred.Index)
			}
			fb.Phis = append(fb.Phis, fp)
		}
		for _, in := range b.Instrs {
			if in.Deleted() {
				continue
			}
			fi, err := encodeInstr(in)
			if err != nil {
				return ff, err
			}
			fb.Instrs = append(fb.Instrs, fi)
		}
		ff.Blocks = append(ff.Blocks, fb)
	}
	return ff, nil
}

func decodeFunc(ff *fileFunc) (*ir.Func, error) {
	f := ir.NewFunc(ff.Name, ir.Type(ff.Ret))
	for _, fv := range ff.Vars {
		f.NewVariable(ir.Type(fv.Ty), fv.Name)
	}
	for _, num := range ff.Args {
		v, err := decodeVar(f, num)
		if err != nil {
			return nil, errors.Wrap(err, "argument")
		}
		f.AddArg(v)
	}
	for _, fb := range ff.Blocks {
		f.NewBlock(fb.Name)
	}
	for bi := range ff.Blocks {
		if err := decodeBlock(f, f.Blocks[bi], &ff.Blocks[bi]); err != nil {
			return nil, errors.Wrap(err, "block %s", ff.Blocks[bi].Name)
		}
	}
	f.ComputeFlow()
	return f, nil
}

func decodeBlock(f *ir.Func, b *ir.Block, fb *fileBlock) error {
	for _, fp := range fb.Phis {
		dest, err := decodeVar(f, fp.Dest)
		if err != nil {
			return err
		}
		srcs := make([]ir.Operand, len(fp.Srcs))
		for i, fo := range fp.Srcs {
			if srcs[i], err = decodeOperand(f, fo); err != nil {
				return err
			}
		}
		preds := make([]*ir.Block, len(fp.Preds))
		for i, idx := range fp.Preds {
			if preds[i], err = decodeBlockRef(f, idx); err != nil {
				return err
			}
		}
		b.Phis = append(b.Phis, ir.NewPhi(dest, srcs, preds))
	}
	for i := range fb.Instrs {
		in, err := decodeInstr(f, &fb.Instrs[i])
		if err != nil {
			return err
		}
		b.Append(in)
	}
	return nil
}

func decodeVar(f *ir.Func, num int32) (*ir.Variable, error) {
	count, err := safecast.Conv[int32](len(f.Vars))
	if err != nil {
		return nil, errors.Wrap(err, "variable count")
	}
	if num < 0 || num >= count {
		return nil, errors.New("unknown variable %d", num)
	}
	return f.Vars[num], nil
}

func decodeBlockRef(f *ir.Func, idx int32) (*ir.Block, error) {
	count, err := safecast.Conv[int32](len(f.Blocks))
	if err != nil {
		return nil, errors.Wrap(err, "block count")
	}
	if idx < 0 || idx >= count {
		return nil, errors.New("unknown block %d", idx)
	}
	return f.Blocks[idx], nil
}
