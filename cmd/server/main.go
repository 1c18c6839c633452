package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// 设置最大处理器数量
	runtime.GOMAXPROCS(runtime.NumCPU())

	// 加载.env文件，失败时继续使用已有环境变量
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "dues-server",
		Short: "Community dues and cash payment service",
	}
	rootCmd.AddCommand(ServeCmd(), MigrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
