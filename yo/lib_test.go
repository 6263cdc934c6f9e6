package yo_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/containerd/errdefs"

	"github.com/MarcinKonowalczyk/runyo/utils"
	"github.com/MarcinKonowalczyk/runyo/yo"
)

func TestRun_JoinsLines(t *testing.T) {
	var out bytes.Buffer
	// "Yo!" split over two lines still increments
	source := strings.Repeat("Y\no!", 65) + "\r\nYO!\n"
	err := yo.Run(source, nil, &out)
	utils.AssertNoError(t, err)
	utils.AssertEqual(t, out.String(), "A")
}

func TestRun_TapeSize(t *testing.T) {
	var out bytes.Buffer
	err := yo.Run("yoyoyoYO!", nil, &out, yo.WithTapeSize(4))
	utils.AssertNoError(t, err)
	utils.AssertEqual(t, out.String(), "\x00")

	err = yo.Run("yoyoyoYO!", nil, &out, yo.WithTapeSize(3))
	utils.Assert(t, errdefs.IsOutOfRange(err), "expected an out of range error")
}

func TestCompile_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := yo.Compile(ctx, "YO?")
	utils.AssertErrorIs(t, err, yo.ErrMalformedLoopNesting)

	_, err = yo.Compile(ctx, "", yo.WithTapeSize(-1))
	utils.Assert(t, errdefs.IsInvalidArgument(err), "expected an invalid argument error")
}

func TestCompile_Text(t *testing.T) {
	m, err := yo.Compile(context.Background(), "yo!yoYO?", yo.WithTapeSize(1))
	utils.RequireNoError(t, err)

	text := m.String()
	utils.AssertContains(t, text, "; ModuleID = 'yocode'")
	utils.AssertContains(t, text, "define ccc void @main() {")
	utils.AssertContains(t, text, "%0 = alloca i8, i32 1")
	utils.AssertContains(t, text, "loop.1:")
	utils.AssertContains(t, text, "after.1:")
	utils.AssertContains(t, text, "br i1 %4, label %loop.1, label %after.1")
}

func TestRunContext_Debug(t *testing.T) {
	var out bytes.Buffer
	err := yo.RunContext(context.Background(), "Yo!YO!", nil, &out, yo.WithDebug(true))
	utils.AssertNoError(t, err)
	utils.AssertEqual(t, out.String(), "\x01")
}
