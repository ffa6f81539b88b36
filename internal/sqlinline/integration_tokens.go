package sqlinline

// Provider API keys saved by cmd/geminikey.

const QSelectIntegrationToken = `--sql 3c51f0e2-9b7a-4d18-a6c4-5e20d84f1b97
select it.token
  from integration_tokens it
 where it.provider = lower($1::text)
 order by it.updated_at desc
 limit 1;
`

const QUpsertIntegrationToken = `--sql b1e7a9c4-0d62-4f3e-8a95-71c6f2d3e048
insert into integration_tokens as it (id, provider, token, properties)
values (gen_random_uuid(), lower($1::text), $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update
   set token      = excluded.token,
       properties = it.properties || excluded.properties,
       updated_at = now();
`
