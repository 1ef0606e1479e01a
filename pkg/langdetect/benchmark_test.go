package langdetect

import (
	"testing"
)

func BenchmarkDetectInclude(b *testing.B) {
	code := []byte(`#if defined _counter_included
 #endinput
#endif
#define _counter_included

methodmap Counter < Handle
{
	public native void Reset();
}
`)
	b.ResetTimer()
	for range b.N {
		Detect("counter.inc", code)
	}
}

func BenchmarkDetectUnknown(b *testing.B) {
	code := []byte("int x = 1;\nint y = x + 2;\n")
	b.ResetTimer()
	for range b.N {
		Detect("values.inc", code)
	}
}
