package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cscan-dev/cscan/internal/findings"
	"github.com/cscan-dev/cscan/internal/rules"
)

func runUnsafe(lines ...string) []findings.Finding {
	m := newMatchers(rules.Default())
	return m.detectUnsafeCalls("test.c", lines, Preprocess(lines))
}

func runCopies(lines ...string) []findings.Finding {
	m := newMatchers(rules.Default())
	pre := Preprocess(lines)
	return m.detectCopyOverflows("test.c", lines, pre, CollectBuffers(pre))
}

func runFormat(lines ...string) []findings.Finding {
	m := newMatchers(rules.Default())
	return m.detectFormatStrings("test.c", lines, Preprocess(lines))
}

func runLarge(rs *rules.Ruleset, lines ...string) []findings.Finding {
	m := newMatchers(rs)
	return m.detectLargeBuffers("test.c", lines, Preprocess(lines))
}

func runAlloca(lines ...string) []findings.Finding {
	m := newMatchers(rules.Default())
	return m.detectAlloca("test.c", lines, Preprocess(lines))
}

func TestDetectUnsafeCalls(t *testing.T) {
	t.Run("gets", func(t *testing.T) {
		got := runUnsafe("gets(buffer);")
		require.Len(t, got, 1)
		assert.Equal(t, rules.RuleUnsafeCall, got[0].RuleID)
		assert.Equal(t, 1, got[0].Line)
		assert.Equal(t, findings.SeverityHigh, got[0].Severity)
		assert.Equal(t, "CWE-242", got[0].CWE)
		assert.Equal(t, "gets used. gets() is inherently unsafe; use fgets() instead.", got[0].Message)
		assert.Equal(t, "gets(buffer);", got[0].SourceLine)
	})

	t.Run("strcpy", func(t *testing.T) {
		got := runUnsafe("strcpy(dest, src);")
		require.Len(t, got, 1)
		assert.Equal(t, "CWE-120", got[0].CWE)
		assert.Equal(t, "strcpy used. Potential buffer overflow; use strncpy()/strlcpy().", got[0].Message)
	})

	t.Run("sprintf is medium severity", func(t *testing.T) {
		got := runUnsafe(`sprintf(buf, "%s", str);`)
		require.Len(t, got, 1)
		assert.Equal(t, findings.SeverityMed, got[0].Severity)
	})

	t.Run("bounded variants are clean", func(t *testing.T) {
		assert.Empty(t, runUnsafe("strncpy(dest, src, sizeof(dest));"))
		assert.Empty(t, runUnsafe(`snprintf(buf, 8, "%s", str);`))
	})

	t.Run("one finding per call", func(t *testing.T) {
		got := runUnsafe("gets(buf);", "strcpy(a, b);", "strcat(c, d);")
		assert.Len(t, got, 3)
	})

	t.Run("two calls on one line", func(t *testing.T) {
		got := runUnsafe("gets(a); gets(b);")
		assert.Len(t, got, 2)
	})

	t.Run("substring names never match", func(t *testing.T) {
		assert.Empty(t, runUnsafe("mygets(buf);", "custom_strcpy(dest, src);"))
	})

	t.Run("calls inside string literals never match", func(t *testing.T) {
		assert.Empty(t, runUnsafe(`s = "strcpy(a, b)";`))
	})

	t.Run("calls inside comments never match", func(t *testing.T) {
		got := runUnsafe(
			"/* gets(buf); */",
			"// strcpy(a, b);",
			"strncpy(dest, src, 10);",
		)
		assert.Empty(t, got)
	})
}

func TestDetectCopyOverflows(t *testing.T) {
	t.Run("literal overflow", func(t *testing.T) {
		got := runCopies("char buf[64];", "memcpy(buf, src, 128);")
		require.Len(t, got, 1)
		assert.Equal(t, rules.RuleCopyOverflow, got[0].RuleID)
		assert.Equal(t, 2, got[0].Line)
		assert.Equal(t, findings.SeverityHigh, got[0].Severity)
		assert.Equal(t, "CWE-120/CWE-787", got[0].CWE)
		assert.Equal(t, "memcpy to 'buf' copies 128 bytes but buffer is only 64 bytes.", got[0].Message)
	})

	t.Run("exact fit is clean", func(t *testing.T) {
		assert.Empty(t, runCopies("char buf[4];", "memcpy(buf, src, 4);"))
	})

	t.Run("one past the end fires", func(t *testing.T) {
		got := runCopies("char buf[4];", "memcpy(buf, src, 5);")
		require.Len(t, got, 1)
		assert.Equal(t, "memcpy to 'buf' copies 5 bytes but buffer is only 4 bytes.", got[0].Message)
	})

	t.Run("memmove and memset use the same rule", func(t *testing.T) {
		got := runCopies("char buf[4];", "memmove(buf, src, 8);", "memset(buf, 0, 8);")
		require.Len(t, got, 2)
		assert.Contains(t, got[0].Message, "memmove to 'buf'")
		assert.Contains(t, got[1].Message, "memset to 'buf'")
	})

	t.Run("variable length is ignored", func(t *testing.T) {
		got := runCopies(
			"char buf[64];",
			"memcpy(buf, src, n);",
			"memcpy(buf, src, size_var + 4);",
		)
		assert.Empty(t, got)
	})

	t.Run("unknown destination is ignored", func(t *testing.T) {
		assert.Empty(t, runCopies("char buf[64];", "memcpy(unknown, src, 128);"))
	})

	t.Run("constant expression length", func(t *testing.T) {
		got := runCopies("char buf[64];", "memcpy(buf, src, 32 * 3);")
		require.Len(t, got, 1)
		assert.Contains(t, got[0].Message, "copies 96 bytes")
	})

	t.Run("sizeof length resolves through the table", func(t *testing.T) {
		got := runCopies(
			"char dst[4];",
			"char big[8];",
			"memcpy(dst, big, sizeof(big));",
			"memcpy(dst, big, sizeof(dst));",
		)
		require.Len(t, got, 1)
		assert.Equal(t, 3, got[0].Line)
		assert.Contains(t, got[0].Message, "copies 8 bytes")
	})

	t.Run("sizeof of unknown name is ignored", func(t *testing.T) {
		assert.Empty(t, runCopies("char dst[4];", "memcpy(dst, src, sizeof(src));"))
	})

	t.Run("nested call in source argument", func(t *testing.T) {
		got := runCopies("char buf[4];", "memcpy(buf, make(a, b), 8);")
		require.Len(t, got, 1)
	})

	t.Run("non-identifier destination is ignored", func(t *testing.T) {
		assert.Empty(t, runCopies("char buf[4];", "memcpy(p->buf, src, 128);"))
	})

	t.Run("call split across lines is skipped", func(t *testing.T) {
		assert.Empty(t, runCopies("char buf[4];", "memcpy(buf,", "src, 128);"))
	})
}

func TestDetectFormatStrings(t *testing.T) {
	t.Run("variable format string", func(t *testing.T) {
		got := runFormat("printf(user_input);")
		require.Len(t, got, 1)
		assert.Equal(t, rules.RuleFormatString, got[0].RuleID)
		assert.Equal(t, findings.SeverityHigh, got[0].Severity)
		assert.Equal(t, "CWE-134", got[0].CWE)
		assert.Equal(t, "printf called with non-literal format string; possible format string vulnerability.", got[0].Message)
	})

	t.Run("literal format string is clean", func(t *testing.T) {
		assert.Empty(t, runFormat(`printf("Hello %s", name);`))
	})

	t.Run("whitespace around variable still fires", func(t *testing.T) {
		assert.Len(t, runFormat("printf(  user_input  );"), 1)
	})

	t.Run("fprintf checks the second argument", func(t *testing.T) {
		assert.Len(t, runFormat("fprintf(stderr, fmt);"), 1)
		assert.Empty(t, runFormat(`fprintf(stderr, "ok %d", 1);`))
	})

	t.Run("snprintf checks the third argument", func(t *testing.T) {
		got := runFormat("snprintf(buf, 8, fmt);")
		require.Len(t, got, 1)
		assert.Contains(t, got[0].Message, "snprintf called")
		assert.Empty(t, runFormat(`snprintf(buf, sizeof(buf), "Hello %s", "World");`))
	})

	t.Run("vsnprintf variant", func(t *testing.T) {
		assert.Len(t, runFormat("vsnprintf(buf, n, fmt, ap);"), 1)
	})

	t.Run("syslog variant", func(t *testing.T) {
		assert.Len(t, runFormat("syslog(LOG_ERR, msg);"), 1)
	})

	t.Run("missing format argument is skipped", func(t *testing.T) {
		assert.Empty(t, runFormat("printf();"))
		assert.Empty(t, runFormat("fprintf(stderr);"))
	})

	t.Run("no formatting calls", func(t *testing.T) {
		assert.Empty(t, runFormat("int x = 5;"))
	})
}

func TestDetectLargeBuffers(t *testing.T) {
	rs := rules.Default()

	t.Run("above threshold fires low", func(t *testing.T) {
		got := runLarge(rs, "void f(void) {", "char big[8192];", "}")
		require.Len(t, got, 1)
		assert.Equal(t, rules.RuleLargeBuffer, got[0].RuleID)
		assert.Equal(t, 2, got[0].Line)
		assert.Equal(t, findings.SeverityLow, got[0].Severity)
		assert.Equal(t, "CWE-770", got[0].CWE)
		assert.Equal(t, "Large stack buffer (8192 bytes) may cause stack overflow.", got[0].Message)
	})

	t.Run("far above threshold escalates to medium", func(t *testing.T) {
		got := runLarge(rs, "void f(void) {", "char huge[65536];", "}")
		require.Len(t, got, 1)
		assert.Equal(t, findings.SeverityMed, got[0].Severity)
	})

	t.Run("element size scales the total", func(t *testing.T) {
		got := runLarge(rs, "void f(void) {", "int nums[2048];", "}")
		require.Len(t, got, 1)
		assert.Contains(t, got[0].Message, "(8192 bytes)")
	})

	t.Run("multi-dimensional total", func(t *testing.T) {
		got := runLarge(rs, "void f(void) {", "double grid[64][64];", "}")
		require.Len(t, got, 1)
		assert.Contains(t, got[0].Message, "(32768 bytes)")
		assert.Equal(t, findings.SeverityMed, got[0].Severity)
	})

	t.Run("file scope is exempt", func(t *testing.T) {
		assert.Empty(t, runLarge(rs, "char global[8192];"))
	})

	t.Run("static storage is exempt", func(t *testing.T) {
		assert.Empty(t, runLarge(rs, "void f(void) {", "static char cache[8192];", "}"))
	})

	t.Run("small buffer is clean", func(t *testing.T) {
		assert.Empty(t, runLarge(rs, "void f(void) {", "char small[64];", "}"))
	})

	t.Run("threshold boundary", func(t *testing.T) {
		assert.Empty(t, runLarge(rs, "void f(void) {", "char edge[4096];", "}"))
		assert.Len(t, runLarge(rs, "void f(void) {", "char over[4097];", "}"), 1)
	})

	t.Run("unresolvable size is skipped", func(t *testing.T) {
		assert.Empty(t, runLarge(rs, "void f(void) {", "char v[n];", "}"))
	})

	t.Run("custom threshold", func(t *testing.T) {
		custom := rules.Default()
		custom.StackBufferThreshold = 1024

		assert.Empty(t, runLarge(custom, "void f(void) {", "char borderline[1024];", "}"))

		low := runLarge(custom, "void f(void) {", "char b[1025];", "}")
		require.Len(t, low, 1)
		assert.Equal(t, findings.SeverityLow, low[0].Severity)

		med := runLarge(custom, "void f(void) {", "char big[4097];", "}")
		require.Len(t, med, 1)
		assert.Equal(t, findings.SeverityMed, med[0].Severity)
	})
}

func TestDetectAlloca(t *testing.T) {
	t.Run("call site fires", func(t *testing.T) {
		got := runAlloca("void* p = alloca(size);")
		require.Len(t, got, 1)
		assert.Equal(t, rules.RuleAlloca, got[0].RuleID)
		assert.Equal(t, findings.SeverityMed, got[0].Severity)
		assert.Equal(t, "CWE-770", got[0].CWE)
		assert.Equal(t, "alloca() can cause stack overflow; prefer heap allocation.", got[0].Message)
	})

	t.Run("each call site fires", func(t *testing.T) {
		assert.Len(t, runAlloca("a = alloca(4); b = alloca(8);"), 2)
	})

	t.Run("space before parenthesis", func(t *testing.T) {
		assert.Len(t, runAlloca("p = alloca (n);"), 1)
	})

	t.Run("substring names never match", func(t *testing.T) {
		assert.Empty(t, runAlloca("my_alloca(4);"))
	})
}

func TestFindingSourceLineIsRawText(t *testing.T) {
	got := runUnsafe("gets(buf); // remove me")
	require.Len(t, got, 1)
	assert.Equal(t, "gets(buf); // remove me", got[0].SourceLine)

	got = runUnsafe("gets(buf);   ")
	require.Len(t, got, 1)
	assert.Equal(t, "gets(buf);", got[0].SourceLine)
}
