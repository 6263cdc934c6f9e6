package shim

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	taskAPI "github.com/containerd/containerd/api/runtime/task/v2"
	apitypes "github.com/containerd/containerd/api/types"
	tasktypes "github.com/containerd/containerd/api/types/task"
	"github.com/containerd/containerd/protobuf"
	ptypes "github.com/containerd/containerd/v2/pkg/protobuf/types"
	"github.com/containerd/containerd/v2/pkg/shim"
	"github.com/containerd/containerd/v2/pkg/shutdown"
	"github.com/containerd/containerd/v2/plugins"
	"github.com/containerd/errdefs"
	"github.com/containerd/fifo"
	"github.com/containerd/log"
	"github.com/containerd/plugin"
	"github.com/containerd/plugin/registry"
	"github.com/containerd/ttrpc"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/MarcinKonowalczyk/runyo/yo"
)

// https://pubs.opengroup.org/onlinepubs/9699919799/utilities/V3_chap02.html#tag_18_21_18
const exitCodeSignal = 128
const initPidFile = "yo.pid"

// RunArg is the argument that makes the shim binary run a yo program
// instead of serving the task API.
const RunArg = "yo"

// comptime override for debug flag
// set with `-ldflags="-X 'github.com/MarcinKonowalczyk/runyo/shim.debug=true'"`
var debug string

func init() {
	registry.Register(&plugin.Registration{
		Type: plugins.TTRPCPlugin,
		ID:   "task",
		Requires: []plugin.Type{
			plugins.InternalPlugin,
		},
		InitFn: func(ic *plugin.InitContext) (interface{}, error) {
			ss, err := ic.GetByID(plugins.InternalPlugin, "shutdown")
			if err != nil {
				return nil, err
			}
			return newTaskService(ic.Context, ss.(shutdown.Service))
		},
	})
}

type yoManager struct {
	name string
}

func NewManager(name string) shim.Manager {
	return yoManager{name: name}
}

func (m yoManager) Name() string {
	return m.name
}

func (m yoManager) Start(ctx context.Context, id string, opts shim.StartOpts) (retShim shim.BootstrapParams, retErr error) {
	log.G(ctx).WithField("id", id).Debug("start (manager)")

	self, err := os.Executable()
	if err != nil {
		return retShim, fmt.Errorf("getting executable of current process: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return retShim, fmt.Errorf("getting current working directory: %w", err)
	}

	var args []string
	if opts.Debug || debug != "" {
		args = append(args, "-debug")
	}

	cmd, err := shim.Command(ctx, &shim.CommandConfig{
		Runtime:      self,
		Address:      opts.Address,
		TTRPCAddress: opts.TTRPCAddress,
		Path:         cwd,
		Args:         args,
	})
	if err != nil {
		return retShim, fmt.Errorf("creating shim command: %w", err)
	}

	sockAddr, err := shim.SocketAddress(ctx, opts.Address, id, opts.Debug)
	if err != nil {
		return retShim, fmt.Errorf("getting a socket address: %w", err)
	}

	socket, err := shim.NewSocket(sockAddr)
	if err != nil {
		return retShim, fmt.Errorf("creating socket: %w", err)
	}

	sockF, err := socket.File()
	if err != nil {
		return retShim, fmt.Errorf("getting shim socket file descriptor: %w", err)
	}

	cmd.ExtraFiles = append(cmd.ExtraFiles, sockF)

	// Start the shim command
	runtime.LockOSThread()
	err = cmd.Start()
	runtime.UnlockOSThread()

	if err != nil {
		sockF.Close()
		return retShim, fmt.Errorf("starting shim command: %w", err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			if _, ok := err.(*exec.ExitError); !ok {
				log.G(ctx).WithError(err).Errorf("failed to wait for shim process %d", cmd.Process.Pid)
			}
		}
	}()

	if err := shim.AdjustOOMScore(cmd.Process.Pid); err != nil {
		return retShim, fmt.Errorf("adjusting shim process OOM score: %w", err)
	}

	return shim.BootstrapParams{
		Version:  2,
		Address:  sockAddr,
		Protocol: "ttrpc",
	}, nil
}

func (m yoManager) Stop(ctx context.Context, id string) (shim.StopStatus, error) {
	log.G(ctx).WithField("id", id).Debug("stop (manager)")

	pid, err := readPidFile(id)
	if err != nil {
		return shim.StopStatus{}, fmt.Errorf("reading pid file: %w", err)
	}

	if pid > 0 {
		p, _ := os.FindProcess(pid)
		// The POSIX standard specifies that a null-signal can be sent to check
		// whether a PID is valid.
		if err := p.Signal(syscall.Signal(0)); err == nil {
			if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
				log.G(ctx).WithError(err).Warnf("failed to send kill syscall to init process %d", pid)
			}
		}
	}

	return shim.StopStatus{
		Pid:        pid,
		ExitedAt:   time.Now(),
		ExitStatus: int(exitCodeSignal + syscall.SIGKILL),
	}, nil
}

func (m yoManager) Info(ctx context.Context, optionsR io.Reader) (*apitypes.RuntimeInfo, error) {
	log.G(ctx).Debug("info (manager)")
	return &apitypes.RuntimeInfo{
		Name: m.name,
		Version: &apitypes.RuntimeVersion{
			Version: "v1.0.0",
		},
	}, nil
}

var (
	_ = shim.Manager(&yoManager{})
)

func pidFilePath(id string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current working directory: %w", err)
	}
	return filepath.Join(filepath.Dir(cwd), id, initPidFile), nil
}

func readPidFile(id string) (int, error) {
	path, err := pidFilePath(id)
	if err != nil {
		return -1, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, err
	}
	return strconv.Atoi(string(data))
}

// If containerd needs to resort to calling the shim's "stop" command to
// clean things up, having the process' pid readable from a file is the
// only way for it to know what init process is associated with the task.
func writePidFile(id string, pid int) error {
	path, err := pidFilePath(id)
	if err != nil {
		return err
	}

	if err := shim.WritePidFile(path, pid); err != nil {
		return fmt.Errorf("writing pid file of init process: %w", err)
	}

	// owner can read/write, group/other can read
	if err := os.Chmod(path, 0644); err != nil {
		return fmt.Errorf("changing pid file permissions: %w", err)
	}

	return nil
}

type proc struct {
	pid int

	done       context.Context
	exitTime   time.Time
	exitStatus int

	stdout string
	stdin  string
}

func (p *proc) String() string {
	if p.done.Err() != nil {
		return fmt.Sprintf("pid:%d, exitTime:%s, exitStatus:%d", p.pid, p.exitTime.Format(time.RFC3339), p.exitStatus)
	}
	return fmt.Sprintf("pid:%d running", p.pid)
}

type taskService struct {
	mu       sync.RWMutex
	procs    map[string]*proc
	shutdown shutdown.Service
}

func newTaskService(ctx context.Context, sd shutdown.Service) (taskAPI.TaskService, error) {
	return &taskService{
		procs:    make(map[string]*proc, 1),
		shutdown: sd,
	}, nil
}

// RegisterTTRPC allows TTRPC services to be registered with the underlying server
func (s *taskService) RegisterTTRPC(server *ttrpc.Server) error {
	taskAPI.RegisterTaskService(server, s)
	return nil
}

var (
	_ = shim.TTRPCService(&taskService{})
)

func (s *taskService) get(id string) (*proc, error) {
	proc, ok := s.procs[id]
	if !ok {
		return nil, fmt.Errorf("task %s not created: %w", id, errdefs.ErrNotFound)
	}
	return proc, nil
}

func (s *taskService) doneContext(id string) (context.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proc, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return proc.done, nil
}

// wait reaps the init process, records its exit and shuts the shim down
// once every task has exited.
func (s *taskService) wait(ctx context.Context, id string, cmd *exec.Cmd, done func()) {
	logger := log.G(ctx).WithField("id", id).WithField("pid", cmd.Process.Pid)

	if err := cmd.Wait(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			logger.WithError(err).Error("failed to wait for init process")
		}
	}

	exitStatus := 255

	if cmd.ProcessState != nil {
		switch ws := cmd.ProcessState.Sys().(syscall.WaitStatus); {
		case cmd.ProcessState.Exited():
			exitStatus = cmd.ProcessState.ExitCode()
		case ws.Signaled():
			exitStatus = exitCodeSignal + int(ws.Signal())
		}
	} else {
		logger.Warn("init process wait returned without setting process state")
	}

	logger.WithField("status", exitStatus).Debug("init process exited")

	s.mu.Lock()
	defer s.mu.Unlock()

	proc, ok := s.procs[id]
	if !ok {
		logger.Error("failed to write final status of done init process: task was removed")
		done()
		return
	}

	proc.exitStatus = exitStatus
	proc.exitTime = time.Now()
	done()

	for _, p := range s.procs {
		if p.done.Err() == nil {
			return
		}
	}

	logger.Debug("all procs exited. shutting down the shim")
	s.shutdown.Shutdown()
}

const startStoppedScript = `
#!/bin/sh
kill -STOP $$
exec "$@"
`

const commandWaitDelay = 100 * time.Millisecond

type closers []io.Closer

func (cs closers) Close() error {
	var err error
	for _, c := range cs {
		if e := c.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// bridge opens the fifo at path and copies between it and the process pipe
// in the background. Data flows into the fifo when it is opened write only.
// Closing the returned closer stops the copy.
func bridge(ctx context.Context, path string, flag int, pipe func() (any, error)) (io.Closer, error) {
	if path == "" {
		return closers{}, nil
	}

	ok, err := fifo.IsFifo(path)
	if err != nil {
		return nil, fmt.Errorf("checking whether file %s is a fifo: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("file %s is not a fifo: %w", path, errdefs.ErrInvalidArgument)
	}

	f, err := fifo.OpenFifo(ctx, path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("opening fifo %s: %w", path, err)
	}

	p, err := pipe()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("getting pipe for %s: %w", path, err)
	}

	toFifo := flag&syscall.O_WRONLY != 0

	var dst io.Writer = f
	var src io.Reader = f

	if toFifo {
		src = p.(io.Reader)
	} else {
		dst = p.(io.Writer)
	}

	go func() {
		defer f.Close()
		if _, err := io.Copy(dst, src); err != nil {
			log.G(ctx).WithError(err).Errorf("failed to copy fifo %s", path)
		}
		// the program sees EOF once the client closes its end
		if !toFifo {
			p.(io.Closer).Close()
		}
	}()

	return closers{f, p.(io.Closer)}, nil
}

// Create a new container
func (s *taskService) Create(ctx context.Context, r *taskAPI.CreateTaskRequest) (_ *taskAPI.CreateTaskResponse, retErr error) {
	logger := log.G(ctx).WithField("id", r.ID)
	logger.Debug("create (service)")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.procs[r.ID]; ok {
		return nil, errdefs.ErrAlreadyExists
	}

	config, err := ReadConfig(r.Bundle)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	source, err := os.ReadFile(config.FullPath())
	if err != nil {
		return nil, fmt.Errorf("reading entrypoint %s: %w", config.Entrypoint, err)
	}

	// report malformed programs at create time rather than as an exit code
	if _, err := yo.Compile(ctx, string(source), yo.WithTapeSize(config.TapeSize)); err != nil {
		return nil, fmt.Errorf("entrypoint %s: %w", config.Entrypoint, err)
	}

	scriptPath := filepath.Join(r.Bundle, "start-stopped.sh")
	if err := os.WriteFile(scriptPath, []byte(startStoppedScript), 0755); err != nil {
		return nil, fmt.Errorf("writing start-stopped.sh: %w", err)
	}

	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("getting executable of current process: %w", err)
	}

	// the init process outlives this request; Kill and wait own its end
	cmd := exec.Command("/bin/sh", scriptPath, self, RunArg,
		"-file", config.FullPath(),
		"-tape", strconv.Itoa(config.TapeSize),
	)
	cmd.Env = config.Env
	cmd.WaitDelay = commandWaitDelay

	stderr := r.Stderr
	if stderr == "" {
		stderr = r.Stdout
	}

	var stdio closers
	defer func() {
		if retErr != nil {
			stdio.Close()
		}
	}()

	for _, b := range []struct {
		name string
		path string
		flag int
		pipe func() (any, error)
	}{
		{"stdout", r.Stdout, syscall.O_WRONLY, func() (any, error) { return cmd.StdoutPipe() }},
		{"stdin", r.Stdin, syscall.O_RDONLY, func() (any, error) { return cmd.StdinPipe() }},
		{"stderr", stderr, syscall.O_WRONLY, func() (any, error) { return cmd.StderrPipe() }},
	} {
		c, err := bridge(ctx, b.path, b.flag, b.pipe)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.name, err)
		}
		stdio = append(stdio, c)
	}

	// Start the process (in a suspended state)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("running init command: %w", err)
	}

	pid := cmd.Process.Pid
	doneCtx, markDone := context.WithCancel(context.Background())

	go s.wait(context.WithoutCancel(ctx), r.ID, cmd, markDone)

	if err := writePidFile(r.ID, pid); err != nil {
		logger.WithError(err).Warn("failed to write pid file")
	}

	s.procs[r.ID] = &proc{
		pid:    pid,
		done:   doneCtx,
		stdout: r.Stdout,
		stdin:  r.Stdin,
	}

	logger.WithField("pid", pid).WithField("entrypoint", config.Entrypoint).Debug("created")

	return &taskAPI.CreateTaskResponse{
		Pid: uint32(pid),
	}, nil
}

// Start the primary user process inside the container
func (s *taskService) Start(ctx context.Context, r *taskAPI.StartRequest) (*taskAPI.StartResponse, error) {
	log.G(ctx).WithField("id", r.ID).Debug("start (service)")

	s.mu.RLock()
	defer s.mu.RUnlock()
	proc, err := s.get(r.ID)
	if err != nil {
		return nil, err
	}

	if err := syscall.Kill(proc.pid, syscall.SIGCONT); err != nil {
		return nil, fmt.Errorf("continuing init process %d: %w", proc.pid, err)
	}

	return &taskAPI.StartResponse{
		Pid: uint32(proc.pid),
	}, nil
}

// Delete a process or container
func (s *taskService) Delete(ctx context.Context, r *taskAPI.DeleteRequest) (*taskAPI.DeleteResponse, error) {
	log.G(ctx).WithField("id", r.ID).Debug("delete (service)")

	s.mu.Lock()
	defer s.mu.Unlock()

	proc, err := s.get(r.ID)
	if err != nil {
		return nil, err
	}

	if proc.done.Err() == nil {
		return nil, errdefs.ErrFailedPrecondition.WithMessage(fmt.Sprintf("init process %d is not done yet", proc.pid))
	}

	delete(s.procs, r.ID)

	return &taskAPI.DeleteResponse{
		Pid:        uint32(proc.pid),
		ExitStatus: uint32(proc.exitStatus),
		ExitedAt:   protobuf.ToTimestamp(proc.exitTime),
	}, nil
}

// Exec an additional process inside the container
func (s *taskService) Exec(ctx context.Context, r *taskAPI.ExecProcessRequest) (*ptypes.Empty, error) {
	return nil, errdefs.ErrNotImplemented.WithMessage("Exec (task)")
}

// ResizePty of a process
func (s *taskService) ResizePty(ctx context.Context, r *taskAPI.ResizePtyRequest) (*ptypes.Empty, error) {
	return &ptypes.Empty{}, nil
}

// State returns runtime state of a process
func (s *taskService) State(ctx context.Context, r *taskAPI.StateRequest) (*taskAPI.StateResponse, error) {
	log.G(ctx).WithField("id", r.ID).Debug("state (service)")

	s.mu.RLock()
	defer s.mu.RUnlock()
	proc, err := s.get(r.ID)
	if err != nil {
		return nil, err
	}

	status := tasktypes.Status_RUNNING
	if proc.done.Err() != nil {
		status = tasktypes.Status_STOPPED
	}

	return &taskAPI.StateResponse{
		ID:         r.ID,
		Pid:        uint32(proc.pid),
		Status:     status,
		Stdout:     proc.stdout,
		Stdin:      proc.stdin,
		ExitStatus: uint32(proc.exitStatus),
		ExitedAt:   protobuf.ToTimestamp(proc.exitTime),
	}, nil
}

// Pause the container
func (s *taskService) Pause(ctx context.Context, r *taskAPI.PauseRequest) (*ptypes.Empty, error) {
	return nil, errdefs.ErrNotImplemented.WithMessage("Pause (task)")
}

// Resume the container
func (s *taskService) Resume(ctx context.Context, r *taskAPI.ResumeRequest) (*ptypes.Empty, error) {
	return nil, errdefs.ErrNotImplemented.WithMessage("Resume (task)")
}

// Kill a process
func (s *taskService) Kill(ctx context.Context, r *taskAPI.KillRequest) (*ptypes.Empty, error) {
	logger := log.G(ctx).WithField("id", r.ID).WithField("signal", r.Signal)
	logger.Debug("kill (service)")

	sig := syscall.Signal(r.Signal)
	if sig == 0 {
		sig = syscall.SIGKILL
	}

	exited, err := func() (bool, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		proc, err := s.get(r.ID)
		if err != nil {
			return false, err
		}

		if proc.done.Err() != nil {
			return true, nil
		}

		if proc.pid > 0 {
			// a stopped process only handles the signal once continued
			if err := syscall.Kill(proc.pid, sig); err != nil {
				return false, fmt.Errorf("sending %s to init process: %w", sig, err)
			}
			if sig != syscall.SIGKILL {
				_ = syscall.Kill(proc.pid, syscall.SIGCONT)
			}
		}
		return false, nil
	}()
	if err != nil {
		logger.WithError(err).Error("failed to kill init process")
		return nil, err
	}

	if exited {
		logger.Warn("task already exited")
		return &ptypes.Empty{}, nil
	}

	return &ptypes.Empty{}, nil
}

// Pids returns all pids inside the container
func (s *taskService) Pids(ctx context.Context, r *taskAPI.PidsRequest) (*taskAPI.PidsResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proc, err := s.get(r.ID)
	if err != nil {
		return nil, err
	}

	return &taskAPI.PidsResponse{
		Processes: []*tasktypes.ProcessInfo{{Pid: uint32(proc.pid)}},
	}, nil
}

// CloseIO of a process
func (s *taskService) CloseIO(ctx context.Context, r *taskAPI.CloseIORequest) (*ptypes.Empty, error) {
	return nil, errdefs.ErrNotImplemented.WithMessage("CloseIO (task)")
}

// Checkpoint the container
func (s *taskService) Checkpoint(ctx context.Context, r *taskAPI.CheckpointTaskRequest) (*ptypes.Empty, error) {
	return nil, errdefs.ErrNotImplemented.WithMessage("Checkpoint (task)")
}

// Connect returns shim information of the underlying service
func (s *taskService) Connect(ctx context.Context, r *taskAPI.ConnectRequest) (*taskAPI.ConnectResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	proc, err := s.get(r.ID)
	if err != nil {
		return nil, err
	}

	return &taskAPI.ConnectResponse{
		ShimPid: uint32(os.Getpid()),
		TaskPid: uint32(proc.pid),
	}, nil
}

// Shutdown is called after the underlying resources of the shim are cleaned up and the service can be stopped
func (s *taskService) Shutdown(ctx context.Context, r *taskAPI.ShutdownRequest) (*ptypes.Empty, error) {
	log.G(ctx).Debug("shutdown (service)")

	s.shutdown.Shutdown()
	return &ptypes.Empty{}, nil
}

// Stats returns container level system stats for a container and its processes
func (s *taskService) Stats(ctx context.Context, r *taskAPI.StatsRequest) (*taskAPI.StatsResponse, error) {
	return &taskAPI.StatsResponse{
		Stats: &anypb.Any{},
	}, nil
}

// Update the live container
func (s *taskService) Update(ctx context.Context, r *taskAPI.UpdateTaskRequest) (*ptypes.Empty, error) {
	return nil, errdefs.ErrAborted.WithMessage("Update (task)")
}

// Wait for a process to exit
func (s *taskService) Wait(ctx context.Context, r *taskAPI.WaitRequest) (*taskAPI.WaitResponse, error) {
	log.G(ctx).WithField("id", r.ID).Debug("wait (service)")

	done, err := s.doneContext(r.ID)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done.Done():
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	proc, err := s.get(r.ID)
	if err != nil {
		return nil, fmt.Errorf("task was removed: %w", err)
	}

	return &taskAPI.WaitResponse{
		ExitStatus: uint32(proc.exitStatus),
		ExitedAt:   protobuf.ToTimestamp(proc.exitTime),
	}, nil
}
