package debugify

import (
	"testing"

	"github.com/perfgo/autodebugify/model"
	"github.com/stretchr/testify/require"
)

func TestExtractBug(t *testing.T) {
	tests := []struct {
		name string
		line string
		want model.Bug
	}{
		{
			name: "synthetic",
			line: "Instruction with empty DebugLoc in function #fn-name# --  %add = add i32 %a, %b",
			want: model.Bug{Action: "drop", BBName: "unknown", FnName: "#fn-name#", Instr: "%add = add i32 %a, %b", Metadata: "DILocation"},
		},
		{
			name: "synthetic with warning prefix",
			line: "WARNING: Instruction with empty DebugLoc in function main --  call void @llvm.trap()\n",
			want: model.Bug{Action: "drop", BBName: "unknown", FnName: "main", Instr: "call void @llvm.trap()", Metadata: "DILocation"},
		},
		{
			name: "original dropped",
			line: "WARNING: SimplifyCFGPass dropped DILocation of  %x = load i32* %p (BB: entry, Fn: foo, File: modified test)",
			want: model.Bug{Action: "drop", BBName: "entry", FnName: "foo", Instr: "%x = load i32* %p", Metadata: "DILocation"},
		},
		{
			name: "original not generated",
			line: "WARNING: InstCombinePass did not generate DILocation for  %mul = shl i32 %a, 1 (BB: for.body, Fn: bar, File: t.c)",
			want: model.Bug{Action: "not-generate", BBName: "for.body", FnName: "bar", Instr: "%mul = shl i32 %a, 1", Metadata: "DILocation"},
		},
		{
			name: "original without block and function",
			line: "WARNING: GVNPass dropped DILocation of  ret void (File: t.c)",
			want: model.Bug{Action: "drop", BBName: "unknown", FnName: "", Instr: "ret void", Metadata: "DILocation"},
		},
		{
			name: "original function is last field",
			line: "WARNING: GVNPass dropped DILocation of  ret void (BB: exit, Fn: baz)",
			want: model.Bug{Action: "drop", BBName: "exit", FnName: "baz", Instr: "ret void", Metadata: "DILocation"},
		},
		{
			name: "unknown DILocation message",
			line: "WARNING: SROAPass changed DILocation of  %a",
			want: model.Bug{},
		},
		{
			name: "unrelated warning",
			line: "WARNING: Missing line 3",
			want: model.Bug{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractBug(tt.line))
		})
	}
}
