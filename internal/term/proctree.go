package term

import (
	"os"
	"strconv"
	"strings"
	"syscall"
)

// descendants returns the PIDs of every live process whose ancestry leads
// to root, discovered by scanning /proc for parent-pid links. Interactive
// shells routinely leave servers and watchers running; closing a session
// must be able to find them.
func descendants(root int) []int {
	children := make(map[int][]int)

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		ppid, ok := parentPID(pid)
		if !ok {
			continue
		}
		children[ppid] = append(children[ppid], pid)
	}

	var result []int
	queue := []int{root}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		for _, child := range children[pid] {
			result = append(result, child)
			queue = append(queue, child)
		}
	}
	return result
}

// parentPID reads the parent pid from /proc/<pid>/stat. The comm field is
// parenthesized and may contain spaces, so parsing starts after the last
// ')'.
func parentPID(pid int) (int, bool) {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return 0, false
	}
	s := string(data)
	i := strings.LastIndexByte(s, ')')
	if i < 0 || i+2 >= len(s) {
		return 0, false
	}
	fields := strings.Fields(s[i+2:])
	if len(fields) < 2 {
		return 0, false
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return ppid, true
}

// killTree forcefully terminates the process rooted at pid and every
// descendant. Children are enumerated before killing the root so the tree
// cannot re-parent away mid-walk. Errors are ignored per-process: a pid
// that exited on its own is success, and a kill failure is best-effort.
func killTree(pid int) {
	pids := descendants(pid)
	_ = syscall.Kill(pid, syscall.SIGKILL)
	for _, child := range pids {
		_ = syscall.Kill(child, syscall.SIGKILL)
	}
}
