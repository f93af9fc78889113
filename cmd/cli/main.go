package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"course-rag/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "version":
		fmt.Println("course-rag cli 0.1.0")
	case "health":
		runHealth()
	case "config":
		runConfig()
	case "server":
		if len(args) > 0 && args[0] == "start" {
			runServerStart()
		} else {
			fmt.Fprintf(os.Stderr, "Usage: courserag server start\n")
			os.Exit(1)
		}
	case "ask":
		runAsk(args)
	case "courses":
		runCourses()
	case "upload":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: courserag upload <file>\n")
			os.Exit(1)
		}
		runUpload(args[0])
	case "login":
		runLogin(args)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: courserag <command> [args]")
	fmt.Println("  version          - 显示版本")
	fmt.Println("  health           - 服务健康检查")
	fmt.Println("  config           - 显示配置概要")
	fmt.Println("  server start     - 启动 API 服务（go run ./cmd/api）")
	fmt.Println("  ask [session_id] - 交互式问答（exit 退出；会话在轮次间自动串联）")
	fmt.Println("  courses          - 列出已入库课程")
	fmt.Println("  upload <file>    - 上传课程文档（服务启用认证时需先 login 并导出 COURSERAG_TOKEN）")
	fmt.Println("  login <username> - 登录获取 JWT，密码从标准输入读取")
}

func runHealth() {
	if err := getHealth(); err != nil {
		fmt.Fprintf(os.Stderr, "健康检查失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("ok")
}

func runConfig() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if cfg != nil {
		fmt.Printf("api.port=%d\n", cfg.API.Port)
		fmt.Printf("api.host=%s\n", cfg.API.Host)
	}
}

func runServerStart() {
	c := exec.Command("go", "run", "./cmd/api")
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Dir = "."
	if err := c.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "server start: %v\n", err)
		os.Exit(1)
	}
}

func runAsk(args []string) {
	sessionID := ""
	if len(args) > 0 {
		sessionID = args[0]
	}
	chatLoop(os.Stdin, os.Stdout, os.Stderr, sessionID, postQuery)
}

// chatLoop 交互式问答循环；send 执行一次提问，返回的 session_id 串联后续轮次
func chatLoop(in io.Reader, out, errw io.Writer, sessionID string, send func(sessionID, query string) (*queryResponse, error)) {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		msg := strings.TrimSpace(line)
		if msg == "" {
			continue
		}
		if msg == "exit" || msg == "quit" {
			break
		}
		resp, err := send(sessionID, msg)
		if err != nil {
			fmt.Fprintf(errw, "提问失败: %v\n", err)
			continue
		}
		sessionID = resp.SessionID
		writeAnswer(out, resp)
	}
}

// writeAnswer 输出回答与来源列表
func writeAnswer(w io.Writer, resp *queryResponse) {
	fmt.Fprintln(w, resp.Answer)
	if len(resp.Sources) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "来源:")
	for i, s := range resp.Sources {
		if s.Link != "" {
			fmt.Fprintf(w, "  %d. %s (%s)\n", i+1, s.Text, s.Link)
		} else {
			fmt.Fprintf(w, "  %d. %s\n", i+1, s.Text)
		}
	}
}

func runCourses() {
	courses, err := getCourses()
	if err != nil {
		fmt.Fprintf(os.Stderr, "列出课程失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("courses: %d\n", courses.TotalCourses)
	for _, title := range courses.CourseTitles {
		fmt.Printf("  - %s\n", title)
	}
}

func runUpload(path string) {
	out, err := uploadDocument(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "上传失败: %v\n", err)
		os.Exit(1)
	}
	if !out.Added {
		fmt.Printf("%s: 课程已存在，跳过\n", out.File)
		return
	}
	fmt.Printf("%s: 入库completed，chunks=%d\n", out.File, out.Chunks)
}

func runLogin(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: courserag login <username>\n")
		os.Exit(1)
	}
	fmt.Print("Password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取密码失败: %v\n", err)
		os.Exit(1)
	}
	token, err := login(args[0], strings.TrimSpace(line))
	if err != nil {
		fmt.Fprintf(os.Stderr, "登录失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
	fmt.Fprintln(os.Stderr, "导出 COURSERAG_TOKEN=<token> 后可使用 upload")
}
