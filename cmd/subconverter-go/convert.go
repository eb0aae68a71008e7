package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CrazyForks/subconverter-go/internal/httpapi"
)

type convertFlags struct {
	target string
	ver    int
	urls   []string
	config string
	params []string
	out    string
}

func newConvertCmd(f *rootFlags) *cobra.Command {
	cf := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "执行一次转换并输出结果",
		Example: `  subconverter-go convert --target clash --url https://example.com/sub
  subconverter-go convert --target surge --ver 4 --url sub.txt -p list=true -o surge.conf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := cf.query()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, f.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := httpapi.Convert(ctx, a.httpOptions(), q)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if cf.out != "" {
				fh, err := os.Create(cf.out)
				if err != nil {
					return fmt.Errorf("无法创建输出文件：%w", err)
				}
				defer fh.Close()
				w = fh
			}
			_, err = io.WriteString(w, res.Content)
			return err
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&cf.target, "target", "clash", "目标客户端")
	fl.IntVar(&cf.ver, "ver", 0, "Surge 主版本号")
	fl.StringArrayVar(&cf.urls, "url", nil, "订阅链接、节点链接或本地文件，可重复")
	fl.StringVar(&cf.config, "external-config", "", "外部配置 YAML")
	fl.StringArrayVarP(&cf.params, "param", "p", nil, "其他 /sub 参数，格式 key=value，可重复")
	fl.StringVarP(&cf.out, "out", "o", "", "输出文件（默认标准输出）")
	return cmd
}

// query maps the flags onto /sub query parameters.
func (cf *convertFlags) query() (url.Values, error) {
	q := url.Values{}
	q.Set("target", cf.target)
	if cf.ver > 0 {
		q.Set("ver", strconv.Itoa(cf.ver))
	}
	if len(cf.urls) > 0 {
		q.Set("url", strings.Join(cf.urls, "|"))
	}
	if cf.config != "" {
		q.Set("config", cf.config)
	}
	for _, kv := range cf.params {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("参数格式错误：%q（应为 key=value）", kv)
		}
		if q.Has(k) {
			return nil, fmt.Errorf("参数重复：%s", k)
		}
		q.Set(k, v)
	}
	return q, nil
}
