package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/gainwell-gia/s2t_backend/utils"
)

const validTemplateCSV = `src_table_name,src_column_name,src_column_physical_name,src_nullable,src_physical_datatype,src_comments
members,member_id,MBR_ID,NO,bigint,primary member identifier
members,dob,MBR_DOB,YES,date,date of birth
`

func TestParseColumnTemplateCSV_Valid(t *testing.T) {
	rows, err := ParseColumnTemplateCSV(strings.NewReader(validTemplateCSV))
	if err != nil {
		t.Fatalf("ParseColumnTemplateCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].TableName != "members" || rows[0].ColumnName != "member_id" ||
		rows[0].PhysicalName != "MBR_ID" || rows[0].Nullable {
		t.Fatalf("row 0 parsed wrong: %+v", rows[0])
	}
	if !rows[1].Nullable || rows[1].DataType != "date" {
		t.Fatalf("row 1 parsed wrong: %+v", rows[1])
	}
}

func TestParseColumnTemplateCSV_HeaderMustMatchExactly(t *testing.T) {
	cases := []string{
		// renamed field
		"table,src_column_name,src_column_physical_name,src_nullable,src_physical_datatype,src_comments\nmembers,c,p,NO,int,\n",
		// missing field
		"src_table_name,src_column_name,src_column_physical_name,src_nullable,src_physical_datatype\nmembers,c,p,NO,int\n",
		// reordered
		"src_column_name,src_table_name,src_column_physical_name,src_nullable,src_physical_datatype,src_comments\nc,members,p,NO,int,\n",
	}
	for i, data := range cases {
		_, err := ParseColumnTemplateCSV(strings.NewReader(data))
		if err == nil {
			t.Errorf("case %d: bad header accepted", i)
			continue
		}
		if !errors.Is(err, utils.ErrorValidation) {
			t.Errorf("case %d: expected ErrorValidation, got %v", i, err)
		}
	}
}

func TestParseColumnTemplateCSV_BadNullableReportsLine(t *testing.T) {
	data := strings.Join([]string{
		strings.Join(csvTemplateHeader, ","),
		"members,member_id,MBR_ID,NO,bigint,ok",
		"members,dob,MBR_DOB,MAYBE,date,bad",
	}, "\n")

	_, err := ParseColumnTemplateCSV(strings.NewReader(data))
	if err == nil {
		t.Fatalf("MAYBE nullable accepted")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("error should carry the 1-based line number, got: %v", err)
	}
	if !strings.Contains(err.Error(), "MAYBE") {
		t.Fatalf("error should echo the bad value, got: %v", err)
	}
}

func TestParseColumnTemplateCSV_RequiredFields(t *testing.T) {
	data := strings.Join([]string{
		strings.Join(csvTemplateHeader, ","),
		",member_id,MBR_ID,NO,bigint,missing table",
	}, "\n")
	if _, err := ParseColumnTemplateCSV(strings.NewReader(data)); err == nil {
		t.Fatalf("missing src_table_name accepted")
	}

	data = strings.Join([]string{
		strings.Join(csvTemplateHeader, ","),
		"members,,MBR_ID,NO,bigint,missing column",
	}, "\n")
	if _, err := ParseColumnTemplateCSV(strings.NewReader(data)); err == nil {
		t.Fatalf("missing src_column_name accepted")
	}
}

func TestParseColumnTemplateCSV_EmptyInputs(t *testing.T) {
	if _, err := ParseColumnTemplateCSV(strings.NewReader("")); err == nil {
		t.Fatalf("empty file accepted")
	}
	headerOnly := strings.Join(csvTemplateHeader, ",") + "\n"
	if _, err := ParseColumnTemplateCSV(strings.NewReader(headerOnly)); err == nil {
		t.Fatalf("header-only file accepted")
	}
}
