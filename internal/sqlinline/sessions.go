package sqlinline

// QInsertSessionWithImages creates the session and its images in one statement.
// $6..$8 are parallel arrays of image ids, urls and prompts.
const QInsertSessionWithImages = `--sql ce4a4d80-c4f7-42bb-9c77-b7309e48bf6c
with ins_session as (
    insert into sessions (id, original_image_url, owner_id, locale, created_at)
    values ($1::uuid, $2::text, $3::uuid, $4::text, $5::timestamptz)
    returning id
)
insert into images (id, session_id, url, prompt, position, created_at, updated_at)
select
    i.id,
    (select id from ins_session),
    i.url,
    i.prompt,
    i.ord::int,
    $5::timestamptz,
    $5::timestamptz
from unnest($6::uuid[], $7::text[], $8::text[]) with ordinality as i(id, url, prompt, ord);
`

const QSelectSession = `--sql d8bc6125-5261-4359-a150-64466c5c95a4
select
    s.id::text,
    s.original_image_url,
    coalesce(s.owner_id::text, ''),
    coalesce(s.selected_image_id::text, ''),
    s.locale,
    s.created_at
from sessions s
where s.id = $1::uuid;
`

const QSelectSessionImages = `--sql 82603a65-3b6b-422f-b6cb-fda4d131f344
select
    i.id::text,
    i.session_id::text,
    i.url,
    i.prompt,
    i.is_final,
    i.is_validated,
    i.created_at
from images i
where i.session_id = $1::uuid
order by i.position, i.created_at;
`

const QSetSelectedImage = `--sql c1986eb1-c27f-40bc-bbf7-3b99c133bb3d
update sessions s
set selected_image_id = $2::uuid
where s.id = $1::uuid
  and exists (
    select 1 from images i
    where i.id = $2::uuid and i.session_id = s.id
  );
`

const QDeleteAllSessions = `--sql 3fc66bff-2567-4ac3-81ef-3f8f71a0ba40
delete from sessions;
`

const QCountSessions = `--sql 41d3cac1-7948-4792-b240-556d557d3685
select count(*) from sessions;
`
