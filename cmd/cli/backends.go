// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"image-inference/internal/model"
)

func newBackendsCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "列出可选后端",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}

			var data [][]string
			for _, d := range model.DefaultRegistry().Backends() {
				def := ""
				if d.ID == cfg.Model.Vision.Default {
					def = "*"
				}
				auth := "-"
				if d.Credential != "" {
					auth = d.Credential
				}
				data = append(data, []string{d.ID, d.DisplayName, string(d.Transport), auth, def})
			}

			table := tablewriter.NewWriter(stdout)
			table.SetHeader([]string{"ID", "MODEL", "TRANSPORT", "CREDENTIAL", "DEFAULT"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			table.AppendBulk(data)
			table.Render()
			return nil
		},
	}
}
