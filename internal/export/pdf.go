/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"shotframe/internal/project"
)

// SheetOptions control the PDF contact sheet.
// Units are points; pages are A4 portrait.
type SheetOptions struct {
	Columns int     // default 3
	Scale   float64 // raster multiplier of embedded screens, default 0.5
	Screens []int   // empty means all screens
}

const (
	sheetMargin  = 36.0
	sheetGap     = 12.0
	sheetCaption = 16.0
	sheetTitle   = 30.0
)

// ContactSheet lays out the selected screens on A4 pages with their number
// under each image and the project name as page title.
func ContactSheet(ctx context.Context, p *project.Project, r Renderer, outPath string, opt SheetOptions) error {
	if opt.Columns <= 0 {
		opt.Columns = 3
	}
	if opt.Scale <= 0 {
		opt.Scale = 0.5
	}
	shots, err := Render(ctx, p, r, opt.Screens, opt.Scale)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(p.Name+" screenshots", true)
	pdf.SetCreator("shotframe", false)
	pageW, pageH := pdf.GetPageSize()

	cellW := (pageW - 2*sheetMargin - float64(opt.Columns-1)*sheetGap) / float64(opt.Columns)
	imgW := cellW
	imgH := imgW * p.Height / p.Width
	usableH := pageH - 2*sheetMargin - sheetTitle
	if imgH+sheetCaption > usableH {
		imgH = usableH - sheetCaption
		imgW = imgH * p.Width / p.Height
	}
	rowH := imgH + sheetCaption + sheetGap
	rows := max(1, int((usableH+sheetGap)/rowH))
	perPage := rows * opt.Columns

	for k, s := range shots {
		if k%perPage == 0 {
			pdf.AddPage()
			pdf.SetFont("Helvetica", "B", 14)
			pdf.SetTextColor(0, 0, 0)
			pdf.Text(sheetMargin, sheetMargin+14, pdf.UnicodeTranslatorFromDescriptor("")(p.Name))
		}
		slot := k % perPage
		col, row := slot%opt.Columns, slot/opt.Columns
		x := sheetMargin + float64(col)*(cellW+sheetGap) + (cellW-imgW)/2
		y := sheetMargin + sheetTitle + float64(row)*rowH

		var buf bytes.Buffer
		if err := Encode(&buf, s.Img, JPEG, 85); err != nil {
			return err
		}
		name := fmt.Sprintf("screen-%d", s.Index)
		iopt := gofpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader(name, iopt, &buf)
		pdf.ImageOptions(name, x, y, imgW, imgH, false, iopt, 0, "")
		pdf.SetDrawColor(200, 200, 200)
		pdf.SetLineWidth(0.5)
		pdf.Rect(x, y, imgW, imgH, "D")

		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(80, 80, 80)
		label := fmt.Sprintf("Screen %d", s.Index+1)
		pdf.Text(x+(imgW-pdf.GetStringWidth(label))/2, y+imgH+12, label)
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
